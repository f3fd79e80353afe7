// Package synth turns parameter descriptors into concrete test inputs.
// Synthesis is deterministic: the same signature and configuration
// always produce the same cases, so a baseline captured today can be
// re-validated bit-for-bit later. Coverage is heuristic by design; a
// parameter no strategy can resolve makes the whole function untested,
// never silently skipped.
package synth

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"paritycheck/internal/config"
	"paritycheck/internal/introspect"
	"paritycheck/internal/logging"
	"paritycheck/internal/value"
)

// ErrGap marks a function for which no usable inputs exist. The
// function is recorded as untested with the unresolved parameters
// named.
var ErrGap = errors.New("input synthesis gap")

// Case is one synthesized argument tuple. Inputs are positional and
// include the context placeholder for context-typed parameters.
type Case struct {
	Inputs []value.Value `json:"inputs"`
}

// Options tunes synthesis. Zero MaxCases falls back to the default cap.
type Options struct {
	MaxCases   int
	Vocabulary []config.VocabRule
}

// DefaultMaxCases caps cases per function when no cap is configured.
// Four covers each canonical numeric value once for a single-parameter
// function while keeping capture cost bounded.
const DefaultMaxCases = 4

// FromConfig builds synthesis options from the loaded configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{MaxCases: cfg.MaxCases, Vocabulary: cfg.Vocabulary}
}

// Plan is the synthesized test plan for one function.
type Plan struct {
	// Cases are the argument tuples to invoke, in a fixed order.
	Cases []Case
	// Params echoes the input descriptors with Strategy filled in,
	// recording where each parameter's values came from.
	Params []introspect.Param
}

// Build synthesizes a test plan. Resolution order per parameter:
// declared type, then name heuristic, then a declared default; a
// parameter none of them resolve is a synthesis gap. Zero-parameter
// functions get exactly one empty case. When every parameter carries a
// declared default, one all-defaults case is always attempted, even if
// no other strategy resolves.
func Build(params []introspect.Param, opts Options) (*Plan, error) {
	maxCases := opts.MaxCases
	if maxCases <= 0 {
		maxCases = DefaultMaxCases
	}

	annotated := make([]introspect.Param, len(params))
	copy(annotated, params)

	if len(annotated) == 0 {
		return &Plan{Cases: []Case{{Inputs: []value.Value{}}}, Params: annotated}, nil
	}

	sets := make([][]value.Value, len(annotated))
	var unresolved []string
	allDefaults := true
	for i := range annotated {
		p := &annotated[i]
		if !p.HasDefault {
			allDefaults = false
		}
		set, strategy := resolve(*p, opts.Vocabulary)
		p.Strategy = strategy
		if strategy == introspect.StrategyUnresolved {
			unresolved = append(unresolved, fmt.Sprintf("%s %s", p.Name, typeName(p.Type)))
			continue
		}
		sets[i] = set
	}

	var cases []Case
	if allDefaults {
		defaults := make([]value.Value, len(annotated))
		for i, p := range annotated {
			defaults[i] = p.Default
		}
		cases = append(cases, Case{Inputs: defaults})
	}

	if len(unresolved) > 0 {
		if allDefaults {
			// The declared defaults are the only usable inputs.
			for i := range annotated {
				if !annotated[i].IsContext {
					annotated[i].Strategy = introspect.StrategyByDefault
				}
			}
			logging.Synth().Debug("falling back to all-defaults case",
				zap.Strings("unresolved", unresolved))
			return &Plan{Cases: cases, Params: annotated}, nil
		}
		return nil, fmt.Errorf("%w: unresolved parameters: %s", ErrGap, strings.Join(unresolved, ", "))
	}

	// Case i takes element i mod len(set) from every parameter's set,
	// so a one-parameter function walks its whole canonical set.
	n := 0
	for _, set := range sets {
		if len(set) > n {
			n = len(set)
		}
	}
	if n > maxCases {
		n = maxCases
	}
	for i := 0; i < n; i++ {
		inputs := make([]value.Value, len(sets))
		for j, set := range sets {
			inputs[j] = set[i%len(set)]
		}
		cases = append(cases, Case{Inputs: inputs})
	}
	cases = dedupe(cases)
	if len(cases) > maxCases {
		cases = cases[:maxCases]
	}
	return &Plan{Cases: cases, Params: annotated}, nil
}

// dedupe drops exact-duplicate tuples, keeping first occurrence order.
// The all-defaults case can coincide with a combinatorial one when the
// defaults sit inside the canonical sets.
func dedupe(cases []Case) []Case {
	seen := make(map[string]bool, len(cases))
	out := cases[:0]
	for _, c := range cases {
		key, err := json.Marshal(c.Inputs)
		if err != nil {
			out = append(out, c)
			continue
		}
		if seen[string(key)] {
			continue
		}
		seen[string(key)] = true
		out = append(out, c)
	}
	return out
}

// resolve picks the value set for one parameter and tags the strategy
// that produced it.
func resolve(p introspect.Param, vocab []config.VocabRule) ([]value.Value, introspect.Strategy) {
	if p.IsContext {
		return []value.Value{value.Ctx()}, introspect.StrategyContext
	}
	if set := byType(p.Type, 0); set != nil {
		return set, introspect.StrategyByType
	}
	if set := byName(p.Name, vocab); set != nil {
		return set, introspect.StrategyByName
	}
	if p.HasDefault {
		return []value.Value{p.Default}, introspect.StrategyByDefault
	}
	return nil, introspect.StrategyUnresolved
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<untyped>"
	}
	return t.String()
}
