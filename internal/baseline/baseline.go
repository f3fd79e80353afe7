// Package baseline captures ground truth from an original module: a
// snapshot of its constants and the observed behavior of its functions
// over synthesized inputs. A persisted baseline is self-contained, so
// validation runs never need the original module on disk again.
package baseline

import (
	"sort"
	"time"

	"paritycheck/internal/introspect"
	"paritycheck/internal/invoke"
	"paritycheck/internal/surface"
	"paritycheck/internal/value"
)

// TestCase is one synthesized invocation with its recorded outcome.
// An expected failure is legitimate behavior: the candidate must fail
// with the same kind, not succeed.
type TestCase struct {
	Inputs   []value.Value  `json:"inputs"`
	Expected invoke.Outcome `json:"expected"`
}

// ParamInfo describes one parameter as it was introspected at capture
// time. Type is informational (the reflected type string); the stored
// inputs decode against the candidate's own parameter types.
type ParamInfo struct {
	Name     string              `json:"name"`
	Type     string              `json:"type,omitempty"`
	Strategy introspect.Strategy `json:"strategy,omitempty"`
}

// FunctionRecord is the captured behavior of one function. A record
// with an Untested reason carries no cases: synthesis could not cover
// it, and validation degrades to an existence check plus a visible
// coverage gap.
type FunctionRecord struct {
	Params   []ParamInfo `json:"params,omitempty"`
	Cases    []TestCase  `json:"cases,omitempty"`
	Untested string      `json:"untested,omitempty"`
}

// ExistenceRecord marks a symbol whose value or signature could not be
// read at capture time. Only its presence in the candidate is checked.
type ExistenceRecord struct {
	Kind   surface.Kind `json:"kind"`
	Reason string       `json:"reason"`
}

// Baseline is the persisted ground-truth snapshot of one module.
// Immutable after capture; validation only reads it.
type Baseline struct {
	ModuleID      string                     `json:"module_id"`
	CapturedAt    time.Time                  `json:"captured_at"`
	Constants     map[string]value.Value     `json:"constants"`
	Functions     map[string]FunctionRecord  `json:"functions"`
	ExistenceOnly map[string]ExistenceRecord `json:"existence_only,omitempty"`
}

// Symbols returns every symbol name the baseline knows, sorted. Each
// of these must exist in a passing candidate.
func (b *Baseline) Symbols() []string {
	names := make([]string, 0, len(b.Constants)+len(b.Functions)+len(b.ExistenceOnly))
	for name := range b.Constants {
		names = append(names, name)
	}
	for name := range b.Functions {
		names = append(names, name)
	}
	for name := range b.ExistenceOnly {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the baseline recorded the named symbol.
func (b *Baseline) Has(name string) bool {
	if _, ok := b.Constants[name]; ok {
		return true
	}
	if _, ok := b.Functions[name]; ok {
		return true
	}
	_, ok := b.ExistenceOnly[name]
	return ok
}
