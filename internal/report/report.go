// Package report aggregates comparison results into a validation
// report with a stable, idempotent rendering. The report is a pure
// function of its inputs: no timestamps, no durations, so running the
// same validation twice yields byte-identical output.
package report

import (
	"fmt"
	"sort"
	"strings"
)

// Status classifies one result. Untested and informational results are
// visible but never decide the overall status.
type Status string

const (
	StatusPass     Status = "pass"
	StatusFail     Status = "fail"
	StatusError    Status = "error"
	StatusUntested Status = "untested"
)

// Category orders results into the rendering's sections.
type Category string

const (
	// CategoryStructure covers symbol presence and kind checks.
	CategoryStructure Category = "structure"
	// CategoryConstant covers constant value checks.
	CategoryConstant Category = "constant"
	// CategoryExistence covers function presence and signature checks.
	CategoryExistence Category = "existence"
	// CategoryOutput covers per-case function output checks.
	CategoryOutput Category = "output"
)

var categoryOrder = []Category{CategoryStructure, CategoryConstant, CategoryExistence, CategoryOutput}

// Result is one comparison outcome. CaseIndex is -1 for results not
// tied to a synthesized case.
type Result struct {
	Symbol    string   `json:"symbol"`
	Category  Category `json:"category"`
	Status    Status   `json:"status"`
	Detail    string   `json:"detail,omitempty"`
	CaseIndex int      `json:"case_index"`
}

// Counts tallies result statuses.
type Counts struct {
	Pass     int `json:"pass"`
	Fail     int `json:"fail"`
	Error    int `json:"error"`
	Untested int `json:"untested"`
}

// Total returns the number of counted results.
func (c Counts) Total() int { return c.Pass + c.Fail + c.Error + c.Untested }

func (c *Counts) add(s Status) {
	switch s {
	case StatusPass:
		c.Pass++
	case StatusFail:
		c.Fail++
	case StatusError:
		c.Error++
	case StatusUntested:
		c.Untested++
	}
}

// ValidationReport is the complete outcome of one validation run.
type ValidationReport struct {
	ModuleID      string              `json:"module_id"`
	BaselineID    string              `json:"baseline_id"`
	OverallStatus Status              `json:"overall_status"`
	Results       []Result            `json:"results"`
	ExtraSymbols  []string            `json:"extra_symbols,omitempty"`
	Counts        map[Category]Counts `json:"counts"`
	Summary       Counts              `json:"summary"`
}

// Build assembles a report. Results are ordered by category section,
// then symbol, then case index, making the order independent of the
// order checks ran in. Overall status is pass iff no result failed or
// errored; untested results and extra symbols never flip it.
func Build(baselineID, moduleID string, results []Result, extras []string) *ValidationReport {
	ordered := make([]Result, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Category != b.Category {
			return categoryRank(a.Category) < categoryRank(b.Category)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.CaseIndex < b.CaseIndex
	})

	sortedExtras := make([]string, len(extras))
	copy(sortedExtras, extras)
	sort.Strings(sortedExtras)

	r := &ValidationReport{
		ModuleID:      moduleID,
		BaselineID:    baselineID,
		OverallStatus: StatusPass,
		Results:       ordered,
		ExtraSymbols:  sortedExtras,
		Counts:        make(map[Category]Counts),
	}
	for _, res := range ordered {
		c := r.Counts[res.Category]
		c.add(res.Status)
		r.Counts[res.Category] = c
		r.Summary.add(res.Status)
		if res.Status == StatusFail || res.Status == StatusError {
			r.OverallStatus = StatusFail
		}
	}
	return r
}

// Passed reports whether the candidate preserved behavior. This is the
// one bit a caller needs for an exit code.
func (r *ValidationReport) Passed() bool { return r.OverallStatus == StatusPass }

func categoryRank(c Category) int {
	for i, cat := range categoryOrder {
		if cat == c {
			return i
		}
	}
	return len(categoryOrder)
}

var sectionTitles = map[Category]string{
	CategoryStructure: "Structural checks",
	CategoryConstant:  "Constants",
	CategoryExistence: "Function existence",
	CategoryOutput:    "Function outputs",
}

// Render produces the human-readable markdown form. Sections appear in
// a fixed order; passing results render as one line, failures carry
// their full diagnostic detail, and coverage gaps get their own
// section so they are never mistaken for verified passes.
func (r *ValidationReport) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Parity validation: %s\n\n", r.ModuleID)
	fmt.Fprintf(&b, "Baseline `%s` vs candidate `%s`\n\n", r.BaselineID, r.ModuleID)
	fmt.Fprintf(&b, "**Overall: %s**\n", strings.ToUpper(string(r.OverallStatus)))

	var untested []Result
	for _, cat := range categoryOrder {
		var section []Result
		for _, res := range r.Results {
			if res.Category != cat {
				continue
			}
			if res.Status == StatusUntested {
				untested = append(untested, res)
				continue
			}
			section = append(section, res)
		}
		if len(section) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", sectionTitles[cat])
		for _, res := range section {
			b.WriteString(renderResult(res))
		}
	}

	if len(untested) > 0 {
		b.WriteString("\n## Untested (coverage gaps)\n\n")
		for _, res := range untested {
			fmt.Fprintf(&b, "- `%s`: %s\n", res.Symbol, res.Detail)
		}
	}

	if len(r.ExtraSymbols) > 0 {
		b.WriteString("\n## Extra symbols (informational)\n\n")
		b.WriteString("Present only in the candidate; these never affect the overall status.\n\n")
		for _, name := range r.ExtraSymbols {
			fmt.Fprintf(&b, "- `%s`\n", name)
		}
	}

	b.WriteString("\n## Summary\n\n")
	b.WriteString("| Section | pass | fail | error | untested |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, cat := range categoryOrder {
		c, ok := r.Counts[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n",
			sectionTitles[cat], c.Pass, c.Fail, c.Error, c.Untested)
	}
	fmt.Fprintf(&b, "| total | %d | %d | %d | %d |\n",
		r.Summary.Pass, r.Summary.Fail, r.Summary.Error, r.Summary.Untested)
	return b.String()
}

func renderResult(res Result) string {
	name := res.Symbol
	if res.CaseIndex >= 0 {
		name = fmt.Sprintf("%s case %d", res.Symbol, res.CaseIndex)
	}
	switch res.Status {
	case StatusPass:
		if res.Detail != "" {
			return fmt.Sprintf("- PASS `%s` — %s\n", name, res.Detail)
		}
		return fmt.Sprintf("- PASS `%s`\n", name)
	case StatusFail:
		return fmt.Sprintf("- **FAIL** `%s` — %s\n", name, res.Detail)
	case StatusError:
		return fmt.Sprintf("- **ERROR** `%s` — %s\n", name, res.Detail)
	}
	return fmt.Sprintf("- %s `%s` — %s\n", strings.ToUpper(string(res.Status)), name, res.Detail)
}
