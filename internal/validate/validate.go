// Package validate orchestrates the two phases of a parity run:
// capturing a baseline from the original module and validating a
// candidate against it. Validation collects every discrepancy in one
// pass; an early failure never suppresses later checks, because the
// report's value is the complete discrepancy set.
package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"paritycheck/internal/baseline"
	"paritycheck/internal/compare"
	"paritycheck/internal/config"
	"paritycheck/internal/invoke"
	"paritycheck/internal/logging"
	"paritycheck/internal/report"
	"paritycheck/internal/surface"
	"paritycheck/internal/synth"
	"paritycheck/internal/value"
)

// Engine runs capture and validate. It holds only injected
// collaborators and fixed configuration; every run owns its own
// baseline and report, so independent runs may execute concurrently.
type Engine struct {
	loader      surface.Loader
	comparator  *compare.Comparator
	synthesis   synth.Options
	callTimeout time.Duration
}

// New builds an engine from a loader and configuration.
func New(loader surface.Loader, cfg *config.Config) *Engine {
	return &Engine{
		loader:      loader,
		comparator:  compare.New(cfg.Epsilon),
		synthesis:   synth.FromConfig(cfg),
		callTimeout: cfg.GetCallTimeout(),
	}
}

// Capture loads the original module and records its baseline. A module
// that cannot be loaded is the one hard error of the pipeline.
func (e *Engine) Capture(ctx context.Context, moduleID string) (*baseline.Baseline, error) {
	s, err := e.loader.Load(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("capturing %q: %w", moduleID, err)
	}
	return baseline.Record(ctx, s, baseline.Options{
		Synthesis:   e.synthesis,
		CallTimeout: e.callTimeout,
	})
}

// Validate checks a candidate module against a recorded baseline. The
// stages run in order — structural, constants, function existence,
// function outputs — and all of them always run. Only a candidate that
// cannot be loaded at all returns an error instead of a report.
func (e *Engine) Validate(ctx context.Context, b *baseline.Baseline, candidateID string) (*report.ValidationReport, error) {
	cand, err := e.loader.Load(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("validating %q: %w", candidateID, err)
	}

	var results []report.Result
	results = append(results, e.checkStructure(b, cand)...)
	results = append(results, e.checkConstants(b, cand)...)
	results = append(results, e.checkExistence(b, cand)...)
	results = append(results, e.checkOutputs(ctx, b, cand)...)

	rep := report.Build(b.ModuleID, candidateID, results, extraSymbols(b, cand))
	logging.Report().Info("validation complete",
		zap.String("baseline", b.ModuleID),
		zap.String("candidate", candidateID),
		zap.String("overall", string(rep.OverallStatus)),
		zap.Int("fail", rep.Summary.Fail),
		zap.Int("error", rep.Summary.Error),
		zap.Int("untested", rep.Summary.Untested))
	return rep, nil
}

// ValidateMany validates several candidates against one baseline.
// Runs are independent (the baseline is read-only), so they execute
// concurrently; reports come back in candidate order. A load failure
// in any candidate fails the whole batch.
func (e *Engine) ValidateMany(ctx context.Context, b *baseline.Baseline, candidateIDs []string) ([]*report.ValidationReport, error) {
	reports := make([]*report.ValidationReport, len(candidateIDs))
	g, ctx := errgroup.WithContext(ctx)
	for i, id := range candidateIDs {
		g.Go(func() error {
			rep, err := e.Validate(ctx, b, id)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// checkStructure verifies every baseline symbol still exists in the
// candidate. A missing symbol is always a hard failure; kind changes
// (constant became function) surface here too.
func (e *Engine) checkStructure(b *baseline.Baseline, cand *surface.Surface) []report.Result {
	var results []report.Result
	for _, name := range b.Symbols() {
		sym, ok := cand.Lookup(name)
		if !ok {
			results = append(results, report.Result{
				Symbol:    name,
				Category:  report.CategoryStructure,
				Status:    report.StatusFail,
				Detail:    fmt.Sprintf("symbol %s is missing from the candidate", name),
				CaseIndex: -1,
			})
			continue
		}
		wantKind := kindOf(b, name)
		if wantKind != "" && sym.Kind != wantKind {
			results = append(results, report.Result{
				Symbol:    name,
				Category:  report.CategoryStructure,
				Status:    report.StatusFail,
				Detail:    fmt.Sprintf("symbol %s changed kind from %s to %s", name, wantKind, sym.Kind),
				CaseIndex: -1,
			})
			continue
		}
		results = append(results, report.Result{
			Symbol:    name,
			Category:  report.CategoryStructure,
			Status:    report.StatusPass,
			CaseIndex: -1,
		})
	}
	return results
}

// checkConstants compares every baseline constant value against the
// candidate's current value.
func (e *Engine) checkConstants(b *baseline.Baseline, cand *surface.Surface) []report.Result {
	var results []report.Result
	for _, name := range sortedKeys(b.Constants) {
		want := b.Constants[name]
		sym, ok := cand.Lookup(name)
		if !ok || sym.Kind != surface.KindConstant {
			// Already a structural failure; nothing to compare.
			continue
		}
		if !sym.Value.IsValid() {
			results = append(results, report.Result{
				Symbol:    name,
				Category:  report.CategoryConstant,
				Status:    report.StatusError,
				Detail:    fmt.Sprintf("constant %s exists but its value could not be read", name),
				CaseIndex: -1,
			})
			continue
		}
		got := value.Encode(sym.Value)
		if reasons := e.comparator.Values(want, got); reasons != nil {
			results = append(results, report.Result{
				Symbol:    name,
				Category:  report.CategoryConstant,
				Status:    report.StatusFail,
				Detail:    fmt.Sprintf("constant %s: %s", name, strings.Join(reasons, "; ")),
				CaseIndex: -1,
			})
			continue
		}
		results = append(results, report.Result{
			Symbol:    name,
			Category:  report.CategoryConstant,
			Status:    report.StatusPass,
			CaseIndex: -1,
		})
	}
	return results
}

// checkExistence verifies each baseline function is still a callable
// function in the candidate and that its arity did not drift. Symbols
// captured existence-only stop here by definition.
func (e *Engine) checkExistence(b *baseline.Baseline, cand *surface.Surface) []report.Result {
	var results []report.Result
	for _, name := range sortedFunctionNames(b) {
		rec := b.Functions[name]
		sym, ok := cand.Lookup(name)
		if !ok {
			continue // structural failure already recorded
		}
		if !sym.Callable() {
			results = append(results, report.Result{
				Symbol:    name,
				Category:  report.CategoryExistence,
				Status:    report.StatusFail,
				Detail:    fmt.Sprintf("%s is no longer a callable function", name),
				CaseIndex: -1,
			})
			continue
		}
		// Params were introspected whenever the function made it into
		// the baseline at all, so the count is authoritative even for
		// functions synthesis could not cover.
		if want, got := len(rec.Params), sym.Value.Type().NumIn(); want != got {
			results = append(results, report.Result{
				Symbol:    name,
				Category:  report.CategoryExistence,
				Status:    report.StatusFail,
				Detail:    fmt.Sprintf("%s signature drifted: %d parameters at capture, %d now", name, want, got),
				CaseIndex: -1,
			})
			continue
		}
		results = append(results, report.Result{
			Symbol:    name,
			Category:  report.CategoryExistence,
			Status:    report.StatusPass,
			CaseIndex: -1,
		})
	}
	return results
}

// checkOutputs replays every recorded test case against the candidate
// and compares outcomes. Every case of every function is checked; a
// mismatch in one case never short-circuits the rest.
func (e *Engine) checkOutputs(ctx context.Context, b *baseline.Baseline, cand *surface.Surface) []report.Result {
	var results []report.Result

	for _, name := range sortedFunctionNames(b) {
		rec := b.Functions[name]
		if rec.Untested != "" {
			results = append(results, report.Result{
				Symbol:    name,
				Category:  report.CategoryOutput,
				Status:    report.StatusUntested,
				Detail:    rec.Untested,
				CaseIndex: -1,
			})
			continue
		}
		sym, ok := cand.Lookup(name)
		if !ok || !sym.Callable() {
			continue // structural or existence failure already recorded
		}
		for i, tc := range rec.Cases {
			results = append(results, e.checkCase(ctx, name, sym, i, tc))
		}
	}

	// Existence-only functions remain visible as coverage gaps.
	for _, name := range sortedKeys(b.ExistenceOnly) {
		rec := b.ExistenceOnly[name]
		if rec.Kind != surface.KindFunction {
			continue
		}
		results = append(results, report.Result{
			Symbol:    name,
			Category:  report.CategoryOutput,
			Status:    report.StatusUntested,
			Detail:    "existence-only: " + rec.Reason,
			CaseIndex: -1,
		})
	}
	return results
}

func (e *Engine) checkCase(ctx context.Context, name string, sym surface.Symbol, idx int, tc baseline.TestCase) report.Result {
	inputs := renderInputs(tc)
	args, err := invoke.Args(ctx, sym.Value.Type(), tc.Inputs)
	if err != nil {
		return report.Result{
			Symbol:    name,
			Category:  report.CategoryOutput,
			Status:    report.StatusError,
			Detail:    fmt.Sprintf("%s inputs %s: recorded inputs no longer fit the signature: %v", name, inputs, err),
			CaseIndex: idx,
		}
	}

	out := invoke.Call(ctx, sym.Value, args, e.callTimeout)
	if out.Kind == invoke.KindTimeout || out.Kind == invoke.KindCrash {
		return report.Result{
			Symbol:    name,
			Category:  report.CategoryOutput,
			Status:    report.StatusError,
			Detail: fmt.Sprintf("%s inputs %s: baseline %s, candidate %s",
				name, inputs, tc.Expected, out),
			CaseIndex: idx,
		}
	}

	if reasons := e.comparator.Outcomes(tc.Expected, out); reasons != nil {
		return report.Result{
			Symbol:    name,
			Category:  report.CategoryOutput,
			Status:    report.StatusFail,
			Detail: fmt.Sprintf("%s inputs %s: baseline %s, candidate %s: %s",
				name, inputs, tc.Expected, out, strings.Join(reasons, "; ")),
			CaseIndex: idx,
		}
	}
	return report.Result{
		Symbol:    name,
		Category:  report.CategoryOutput,
		Status:    report.StatusPass,
		CaseIndex: idx,
	}
}

// extraSymbols lists candidate symbols absent from the baseline.
// Informational only.
func extraSymbols(b *baseline.Baseline, cand *surface.Surface) []string {
	var extras []string
	for _, sym := range cand.Symbols() {
		if !b.Has(sym.Name) {
			extras = append(extras, sym.Name)
		}
	}
	return extras
}

// kindOf reports what kind the baseline recorded a symbol as.
func kindOf(b *baseline.Baseline, name string) surface.Kind {
	if _, ok := b.Constants[name]; ok {
		return surface.KindConstant
	}
	if _, ok := b.Functions[name]; ok {
		return surface.KindFunction
	}
	if rec, ok := b.ExistenceOnly[name]; ok {
		return rec.Kind
	}
	return ""
}

func renderInputs(tc baseline.TestCase) string {
	parts := make([]string, len(tc.Inputs))
	for i, in := range tc.Inputs {
		parts[i] = in.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func sortedFunctionNames(b *baseline.Baseline) []string {
	return sortedKeys(b.Functions)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
