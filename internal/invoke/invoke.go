// Package invoke runs target functions under a per-call timeout with
// panic recovery. Invocation is the only operation in a validation run
// that can hang, so every call goes through Call's bounded harness: the
// result arrives on a channel, and a timer caps how long the run waits.
package invoke

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"go.uber.org/zap"

	"paritycheck/internal/logging"
	"paritycheck/internal/value"
)

// Kind classifies how an invocation ended.
type Kind string

const (
	// KindOK means the call returned a value tuple (with a nil error,
	// when the function has an error return).
	KindOK Kind = "ok"
	// KindFailure means the target panicked or returned a non-nil
	// error. Failures are legitimate, comparable behavior: a candidate
	// must fail with the same kind the baseline recorded.
	KindFailure Kind = "failure"
	// KindTimeout means the call did not return within the bound.
	KindTimeout Kind = "timeout"
	// KindCrash means the call could not be made safely (arity or
	// type mismatch between arguments and signature).
	KindCrash Kind = "crash"
)

// Outcome is the observable result of one invocation. For failures,
// FailureKind holds the concrete Go type of the panic value or error;
// message text is deliberately not captured, so comparisons never
// depend on wording.
type Outcome struct {
	Kind        Kind          `json:"kind"`
	Values      []value.Value `json:"values,omitempty"`
	FailureKind string        `json:"failure_kind,omitempty"`
	Detail      string        `json:"detail,omitempty"`
}

// OK builds a successful outcome carrying a value tuple.
func OK(values ...value.Value) Outcome {
	return Outcome{Kind: KindOK, Values: values}
}

// Failed builds a failure outcome of the given kind.
func Failed(kind string) Outcome {
	return Outcome{Kind: KindFailure, FailureKind: kind}
}

// String renders the outcome for report details.
func (o Outcome) String() string {
	switch o.Kind {
	case KindOK:
		return renderTuple(o.Values)
	case KindFailure:
		return "failure " + o.FailureKind
	case KindTimeout:
		if o.Detail != "" {
			return "timeout (" + o.Detail + ")"
		}
		return "timeout"
	case KindCrash:
		if o.Detail != "" {
			return "crash (" + o.Detail + ")"
		}
		return "crash"
	}
	return string(o.Kind)
}

func renderTuple(values []value.Value) string {
	if len(values) == 0 {
		return "()"
	}
	if len(values) == 1 {
		return values[0].String()
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Call invokes fn with args, bounded by timeout. The call runs in its
// own goroutine; if it neither returns nor panics within the bound the
// goroutine is abandoned and a timeout outcome is returned. Panics are
// recovered and classified as failures, so a crashing target never
// takes the run down with it.
func Call(ctx context.Context, fn reflect.Value, args []reflect.Value, timeout time.Duration) Outcome {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return Outcome{Kind: KindCrash, Detail: "target is not a callable function"}
	}
	t := fn.Type()
	if t.NumIn() != len(args) {
		return Outcome{
			Kind:   KindCrash,
			Detail: fmt.Sprintf("have %d arguments for %d parameters", len(args), t.NumIn()),
		}
	}
	for i, arg := range args {
		if !arg.IsValid() || !arg.Type().AssignableTo(t.In(i)) {
			return Outcome{
				Kind:   KindCrash,
				Detail: fmt.Sprintf("argument %d is not assignable to %s", i, t.In(i)),
			}
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Buffered so an abandoned call can still send and exit.
	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Outcome{Kind: KindFailure, FailureKind: failureKind(r)}
			}
		}()
		done <- outcomeOf(t, fn.Call(args))
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out
	case <-ctx.Done():
		logging.Invoke().Warn("call cancelled", zap.Error(ctx.Err()))
		return Outcome{Kind: KindTimeout, Detail: ctx.Err().Error()}
	case <-timer.C:
		logging.Invoke().Warn("call exceeded timeout", zap.Duration("timeout", timeout))
		return Outcome{Kind: KindTimeout, Detail: fmt.Sprintf("no return within %s", timeout)}
	}
}

// DefaultTimeout bounds a single target call when no explicit timeout
// is configured.
const DefaultTimeout = 2 * time.Second

// outcomeOf classifies a completed call. A trailing error return is
// the Go spelling of a raisable failure: non-nil strips the whole call
// down to its failure kind, nil drops the error slot from the tuple.
func outcomeOf(t reflect.Type, out []reflect.Value) Outcome {
	n := t.NumOut()
	if n > 0 && t.Out(n-1) == errType {
		errv := out[n-1]
		if !errv.IsNil() {
			return Outcome{Kind: KindFailure, FailureKind: errv.Elem().Type().String()}
		}
		out = out[:n-1]
	}
	values := make([]value.Value, len(out))
	for i := range out {
		values[i] = value.Encode(out[i])
	}
	return Outcome{Kind: KindOK, Values: values}
}

// failureKind names the concrete type of a recovered panic value.
// Interpreter frames re-panic wrapped in interp.Panic; unwrap so
// interpreted and compiled targets report the same kind.
func failureKind(r any) string {
	if p, ok := r.(interp.Panic); ok {
		r = p.Value
	}
	if r == nil {
		return "nil"
	}
	if err, ok := r.(error); ok {
		return reflect.TypeOf(err).String()
	}
	return reflect.TypeOf(r).String()
}

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// Args rebuilds typed arguments for a function from recorded input
// snapshots. The snapshots were captured against the baseline module;
// decoding them against the candidate's parameter types is where
// signature drift in parameter types becomes visible, so conversion
// problems are returned with both sides named rather than guessed
// around.
func Args(ctx context.Context, fn reflect.Type, inputs []value.Value) ([]reflect.Value, error) {
	if fn.NumIn() != len(inputs) {
		return nil, fmt.Errorf("have %d recorded inputs for %d parameters", len(inputs), fn.NumIn())
	}
	args := make([]reflect.Value, len(inputs))
	for i, in := range inputs {
		pt := fn.In(i)
		if pt == contextType {
			if !in.IsCtx() {
				return nil, fmt.Errorf("parameter %d became context.Context; recorded input was %s", i, in)
			}
			args[i] = reflect.ValueOf(ctx)
			continue
		}
		if in.IsCtx() {
			return nil, fmt.Errorf("parameter %d was context.Context at capture time, now %s", i, pt)
		}
		av, err := value.Decode(in, pt)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		args[i] = av
	}
	return args, nil
}
