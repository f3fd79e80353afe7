package baseline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"paritycheck/internal/introspect"
	"paritycheck/internal/invoke"
	"paritycheck/internal/logging"
	"paritycheck/internal/surface"
	"paritycheck/internal/synth"
	"paritycheck/internal/value"
)

// Options tunes baseline capture.
type Options struct {
	Synthesis   synth.Options
	CallTimeout time.Duration
}

// Record captures a baseline from a loaded surface. Constants are
// snapshotted deeply; each function gets a synthesized test plan and
// is invoked once per case, with the return tuple or failure kind
// recorded as the expectation. Per-symbol problems degrade that
// symbol, never the run.
func Record(ctx context.Context, s *surface.Surface, opts Options) (*Baseline, error) {
	log := logging.Capture()
	timer := logging.StartTimer(logging.CategoryCapture, "record "+s.ModuleID())
	defer timer.Stop()

	b := &Baseline{
		ModuleID:      s.ModuleID(),
		CapturedAt:    time.Now().UTC(),
		Constants:     make(map[string]value.Value),
		Functions:     make(map[string]FunctionRecord),
		ExistenceOnly: make(map[string]ExistenceRecord),
	}

	for _, sym := range s.Constants() {
		if !sym.Value.IsValid() {
			log.Warn("constant degraded to existence-only",
				zap.String("symbol", sym.Name), zap.String("reason", "value not evaluable"))
			b.ExistenceOnly[sym.Name] = ExistenceRecord{Kind: surface.KindConstant, Reason: "value not evaluable"}
			continue
		}
		b.Constants[sym.Name] = value.Encode(sym.Value)
	}

	for _, sym := range s.Functions() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("capture cancelled: %w", err)
		}
		rec, exist, err := recordFunction(ctx, sym, opts)
		if err != nil {
			return nil, err
		}
		if exist != nil {
			log.Warn("function degraded to existence-only",
				zap.String("symbol", sym.Name), zap.String("reason", exist.Reason))
			b.ExistenceOnly[sym.Name] = *exist
			continue
		}
		b.Functions[sym.Name] = *rec
	}

	log.Info("baseline recorded",
		zap.String("module", b.ModuleID),
		zap.Int("constants", len(b.Constants)),
		zap.Int("functions", len(b.Functions)),
		zap.Int("existence_only", len(b.ExistenceOnly)))
	return b, nil
}

func recordFunction(ctx context.Context, sym surface.Symbol, opts Options) (*FunctionRecord, *ExistenceRecord, error) {
	params, err := introspect.Describe(sym)
	if err != nil {
		return nil, &ExistenceRecord{Kind: surface.KindFunction, Reason: err.Error()}, nil
	}

	plan, err := synth.Build(params, opts.Synthesis)
	if err != nil {
		// A synthesis gap is a recorded coverage gap, not a capture
		// failure: the function stays in the baseline as untested.
		return &FunctionRecord{Params: paramInfo(params), Untested: err.Error()}, nil, nil
	}

	rec := &FunctionRecord{Params: paramInfo(plan.Params)}
	var voided int
	for _, c := range plan.Cases {
		args, err := invoke.Args(ctx, sym.Value.Type(), c.Inputs)
		if err != nil {
			voided++
			logging.Capture().Warn("case voided: inputs not decodable",
				zap.String("symbol", sym.Name), zap.Error(err))
			continue
		}
		out := invoke.Call(ctx, sym.Value, args, opts.CallTimeout)
		if out.Kind == invoke.KindTimeout || out.Kind == invoke.KindCrash {
			// The original's own behavior must be observable to be a
			// ground truth; a hanging or uncallable case records
			// nothing.
			voided++
			logging.Capture().Warn("case voided",
				zap.String("symbol", sym.Name), zap.String("outcome", string(out.Kind)),
				zap.String("detail", out.Detail))
			continue
		}
		rec.Cases = append(rec.Cases, TestCase{Inputs: c.Inputs, Expected: out})
	}

	if len(rec.Cases) == 0 {
		rec.Untested = fmt.Sprintf("all %d synthesized cases voided at capture time", voided)
	}
	return rec, nil, nil
}

func paramInfo(params []introspect.Param) []ParamInfo {
	out := make([]ParamInfo, len(params))
	for i, p := range params {
		out[i] = ParamInfo{Name: p.Name, Strategy: p.Strategy}
		if p.Type != nil {
			out[i].Type = p.Type.String()
		}
	}
	return out
}
