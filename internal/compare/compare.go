// Package compare decides behavioral equivalence between a recorded
// baseline value and a candidate value. Rules are dispatched on the
// snapshot tag: exact equality for booleans, integers, strings and
// nil; tolerance for floats; element-wise recursion for lists; key-set
// plus value recursion for maps; kind-only equality for failures.
// Mismatches come back as reasons, never panics: a shape difference in
// the candidate is a finding, not a crash.
package compare

import (
	"fmt"
	"math"

	"paritycheck/internal/invoke"
	"paritycheck/internal/value"
)

// DefaultEpsilon is the float tolerance when none is configured. Large
// enough to absorb reordered arithmetic (0.1+0.2 vs 0.3), far too
// small to hide a real numeric change.
const DefaultEpsilon = 1e-9

// Comparator applies the equivalence rules with a fixed tolerance.
// The zero value uses DefaultEpsilon.
type Comparator struct {
	epsilon float64
}

// New builds a comparator. Non-positive epsilon falls back to the
// default.
func New(epsilon float64) *Comparator {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Comparator{epsilon: epsilon}
}

// Epsilon reports the active float tolerance.
func (c *Comparator) Epsilon() float64 {
	if c.epsilon <= 0 {
		return DefaultEpsilon
	}
	return c.epsilon
}

// Outcomes compares a complete invocation outcome pair. A nil return
// means equivalent; otherwise every detected mismatch is listed, so a
// report never shows only the first divergence.
func (c *Comparator) Outcomes(baseline, candidate invoke.Outcome) []string {
	switch {
	case baseline.Kind == invoke.KindOK && candidate.Kind == invoke.KindOK:
		return c.tuples(baseline.Values, candidate.Values)

	case baseline.Kind == invoke.KindFailure && candidate.Kind == invoke.KindFailure:
		if baseline.FailureKind == candidate.FailureKind {
			return nil
		}
		return []string{fmt.Sprintf("failure kind changed: baseline %s, candidate %s",
			baseline.FailureKind, candidate.FailureKind)}

	case baseline.Kind == invoke.KindOK && candidate.Kind == invoke.KindFailure:
		return []string{fmt.Sprintf("candidate failed with %s where baseline returned %s",
			candidate.FailureKind, baseline)}

	case baseline.Kind == invoke.KindFailure && candidate.Kind == invoke.KindOK:
		return []string{fmt.Sprintf("candidate returned %s where baseline failed with %s",
			candidate, baseline.FailureKind)}
	}
	// Timeouts and crashes are invocation errors, not comparable
	// behavior; the orchestrator records them before reaching here.
	return []string{fmt.Sprintf("outcome not comparable: baseline %s, candidate %s", baseline, candidate)}
}

// tuples compares two return-value tuples position by position.
func (c *Comparator) tuples(want, got []value.Value) []string {
	if len(want) != len(got) {
		return []string{fmt.Sprintf("return tuple length changed: baseline %d values, candidate %d",
			len(want), len(got))}
	}
	var reasons []string
	for i := range want {
		at := ""
		if len(want) > 1 {
			at = fmt.Sprintf("return value %d: ", i)
		}
		for _, r := range c.Values(want[i], got[i]) {
			reasons = append(reasons, at+r)
		}
	}
	return reasons
}

// Values compares two snapshots. A nil return means equivalent.
func (c *Comparator) Values(want, got value.Value) []string {
	return c.values("", want, got)
}

func (c *Comparator) values(path string, want, got value.Value) []string {
	// Numbers compare under tolerance across tags, so an int-returning
	// baseline tolerates a float-returning candidate when the values
	// agree.
	if want.IsNumeric() && got.IsNumeric() {
		if want.Tag == got.Tag && want.Tag != value.TagFloat {
			if want.Scalar == got.Scalar {
				return nil
			}
			return mismatch(path, want, got, "values differ")
		}
		return c.floats(path, want, got)
	}

	if want.Tag != got.Tag {
		return mismatch(path, want, got,
			fmt.Sprintf("type changed from %s to %s", want.Tag, got.Tag))
	}

	switch want.Tag {
	case value.TagNil:
		return nil

	case value.TagBool, value.TagString:
		if want.Scalar == got.Scalar {
			return nil
		}
		return mismatch(path, want, got, "values differ")

	case value.TagList:
		return c.lists(path, want, got)

	case value.TagMap:
		return c.maps(path, want, got)

	case value.TagOpaque:
		if want.Type == got.Type && want.Scalar == got.Scalar {
			return nil
		}
		return mismatch(path, want, got, "opaque values differ")
	}

	return mismatch(path, want, got, fmt.Sprintf("unknown snapshot tag %s", want.Tag))
}

// floats applies relative plus absolute tolerance. NaN equals NaN for
// validation purposes: a candidate reproducing the baseline's NaN has
// preserved behavior.
func (c *Comparator) floats(path string, want, got value.Value) []string {
	a, okA := want.AsFloat()
	b, okB := got.AsFloat()
	if !okA || !okB {
		return mismatch(path, want, got, "malformed numeric payload")
	}
	if a == b || (math.IsNaN(a) && math.IsNaN(b)) {
		return nil
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return mismatch(path, want, got, "values differ")
	}
	eps := c.Epsilon()
	diff := math.Abs(a - b)
	bound := eps + eps*math.Max(math.Abs(a), math.Abs(b))
	if diff <= bound {
		return nil
	}
	return mismatch(path, want, got,
		fmt.Sprintf("difference %g exceeds tolerance %g", diff, bound))
}

func (c *Comparator) lists(path string, want, got value.Value) []string {
	if len(want.Elems) != len(got.Elems) {
		return mismatch(path, want, got,
			fmt.Sprintf("length changed from %d to %d", len(want.Elems), len(got.Elems)))
	}
	var reasons []string
	for i := range want.Elems {
		reasons = append(reasons, c.values(fmt.Sprintf("%s[%d]", path, i), want.Elems[i], got.Elems[i])...)
	}
	return reasons
}

// maps checks key sets first, naming every missing and extra key
// individually, then recurses into the shared keys.
func (c *Comparator) maps(path string, want, got value.Value) []string {
	var reasons []string
	gotKeys := make(map[string]value.Value, len(got.Entries))
	for _, e := range got.Entries {
		gotKeys[e.Key] = e.Val
	}
	wantKeys := make(map[string]bool, len(want.Entries))

	for _, e := range want.Entries {
		wantKeys[e.Key] = true
		gv, ok := gotKeys[e.Key]
		if !ok {
			reasons = append(reasons, fmt.Sprintf("%skey %q missing from candidate (baseline value %s)",
				prefix(path), e.Key, e.Val))
			continue
		}
		reasons = append(reasons, c.values(path+"."+e.Key, e.Val, gv)...)
	}
	for _, e := range got.Entries {
		if !wantKeys[e.Key] {
			reasons = append(reasons, fmt.Sprintf("%sextra key %q in candidate (value %s)",
				prefix(path), e.Key, e.Val))
		}
	}
	return reasons
}

func mismatch(path string, want, got value.Value, why string) []string {
	return []string{fmt.Sprintf("%s%s: expected %s, got %s", prefix(path), why, want, got)}
}

func prefix(path string) string {
	if path == "" {
		return ""
	}
	return "at " + path + ": "
}
