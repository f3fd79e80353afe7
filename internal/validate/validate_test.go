package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"paritycheck/internal/baseline"
	"paritycheck/internal/config"
	"paritycheck/internal/report"
	"paritycheck/internal/surface"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.CallTimeout = "1s"
	return cfg
}

// originalModule registers the reference animation module the scenarios
// validate against.
func originalModule(t *testing.T, reg *surface.Registry, id string) {
	t.Helper()
	require.NoError(t, reg.AddConst(id, "FrameRate", 30))
	require.NoError(t, reg.AddConst(id, "Epsilon", 0.1+0.2))
	require.NoError(t, reg.AddFunc(id, "GetFrameFromTime",
		func(time float64) int { return int(time * 30) },
		surface.ParamSpec{Name: "time"},
	))
	require.NoError(t, reg.AddFunc(id, "Clamp01",
		func(ratio float64) float64 {
			if ratio < 0 {
				return 0
			}
			if ratio > 1 {
				return 1
			}
			return ratio
		},
		surface.ParamSpec{Name: "ratio"},
	))
}

func capture(t *testing.T, reg *surface.Registry, id string) (*Engine, *baseline.Baseline) {
	t.Helper()
	e := New(reg, testConfig())
	b, err := e.Capture(context.Background(), id)
	require.NoError(t, err)
	return e, b
}

func TestRoundTripAlwaysPasses(t *testing.T) {
	reg := surface.NewRegistry()
	originalModule(t, reg, "anim")
	e, b := capture(t, reg, "anim")

	rep, err := e.Validate(context.Background(), b, "anim")
	require.NoError(t, err)
	require.True(t, rep.Passed(), "validate(capture(M), M) must pass:\n%s", rep.Render())
}

func TestValidateIdempotent(t *testing.T) {
	reg := surface.NewRegistry()
	originalModule(t, reg, "anim")
	e, b := capture(t, reg, "anim")

	first, err := e.Validate(context.Background(), b, "anim")
	require.NoError(t, err)
	second, err := e.Validate(context.Background(), b, "anim")
	require.NoError(t, err)
	require.Equal(t, first.Render(), second.Render())
}

func TestFrameDriftDetected(t *testing.T) {
	reg := surface.NewRegistry()
	originalModule(t, reg, "anim")
	require.NoError(t, reg.AddConst("refactor", "FrameRate", 30))
	require.NoError(t, reg.AddConst("refactor", "Epsilon", 0.1+0.2))
	require.NoError(t, reg.AddFunc("refactor", "GetFrameFromTime",
		func(time float64) int {
			frame := int(time * 30)
			if frame == 90 {
				return 91 // off-by-one regression at t = 3.0
			}
			return frame
		},
		surface.ParamSpec{Name: "time"},
	))
	require.NoError(t, reg.AddFunc("refactor", "Clamp01",
		func(ratio float64) float64 { return min(max(ratio, 0), 1) },
		surface.ParamSpec{Name: "ratio"},
	))

	e, b := capture(t, reg, "anim")
	rep, err := e.Validate(context.Background(), b, "refactor")
	require.NoError(t, err)
	require.False(t, rep.Passed())

	var failed []report.Result
	for _, res := range rep.Results {
		if res.Symbol == "GetFrameFromTime" && res.Status == report.StatusFail {
			failed = append(failed, res)
		}
	}
	require.Len(t, failed, 1, "exactly the t=3.0 case must fail")
	require.Contains(t, failed[0].Detail, "90")
	require.Contains(t, failed[0].Detail, "91")
	require.Contains(t, failed[0].Detail, "(3)", "detail must show the input used")
}

func TestFloatReorderingPassesUnderTolerance(t *testing.T) {
	reg := surface.NewRegistry()
	originalModule(t, reg, "anim")
	// Same constant computed in a different operation order.
	require.NoError(t, reg.AddConst("reordered", "FrameRate", 30))
	require.NoError(t, reg.AddConst("reordered", "Epsilon", 0.3))
	require.NoError(t, reg.AddFunc("reordered", "GetFrameFromTime",
		func(time float64) int { return int(time * 30) },
		surface.ParamSpec{Name: "time"},
	))
	require.NoError(t, reg.AddFunc("reordered", "Clamp01",
		func(ratio float64) float64 { return min(max(ratio, 0), 1) },
		surface.ParamSpec{Name: "ratio"},
	))

	e, b := capture(t, reg, "anim")
	rep, err := e.Validate(context.Background(), b, "reordered")
	require.NoError(t, err)
	require.True(t, rep.Passed(), rep.Render())
}

func TestFloatBeyondToleranceFails(t *testing.T) {
	reg := surface.NewRegistry()
	require.NoError(t, reg.AddConst("orig", "Epsilon", 0.3))
	require.NoError(t, reg.AddConst("cand", "Epsilon", 0.30001))

	e, b := capture(t, reg, "orig")
	rep, err := e.Validate(context.Background(), b, "cand")
	require.NoError(t, err)
	require.False(t, rep.Passed())
	require.Contains(t, rep.Render(), "Epsilon")
}

func TestMissingConstantFails(t *testing.T) {
	reg := surface.NewRegistry()
	originalModule(t, reg, "anim")
	// Candidate drops FrameRate entirely.
	require.NoError(t, reg.AddConst("dropped", "Epsilon", 0.1+0.2))
	require.NoError(t, reg.AddFunc("dropped", "GetFrameFromTime",
		func(time float64) int { return int(time * 30) },
		surface.ParamSpec{Name: "time"},
	))
	require.NoError(t, reg.AddFunc("dropped", "Clamp01",
		func(ratio float64) float64 { return min(max(ratio, 0), 1) },
		surface.ParamSpec{Name: "ratio"},
	))

	e, b := capture(t, reg, "anim")
	rep, err := e.Validate(context.Background(), b, "dropped")
	require.NoError(t, err)
	require.False(t, rep.Passed())

	rendered := rep.Render()
	require.Contains(t, rendered, "FrameRate")
	require.Contains(t, rendered, "missing")
}

func TestExtraSymbolInformationalOnly(t *testing.T) {
	reg := surface.NewRegistry()
	originalModule(t, reg, "anim")
	originalModule(t, reg, "extended")
	require.NoError(t, reg.AddFunc("extended", "NewHelper", func(n int) int { return n * 2 },
		surface.ParamSpec{Name: "n"}))

	e, b := capture(t, reg, "anim")
	rep, err := e.Validate(context.Background(), b, "extended")
	require.NoError(t, err)
	require.True(t, rep.Passed(), "extra symbols must never fail a run")
	require.Equal(t, []string{"NewHelper"}, rep.ExtraSymbols)
	require.Contains(t, rep.Render(), "informational")
}

func TestCandidateErrorWhereBaselineSucceeded(t *testing.T) {
	reg := surface.NewRegistry()
	require.NoError(t, reg.AddFunc("orig", "Halve",
		func(n int) (int, error) { return n / 2, nil },
		surface.ParamSpec{Name: "n"}))
	require.NoError(t, reg.AddFunc("cand", "Halve",
		func(n int) (int, error) {
			if n < 0 {
				return 0, errors.New("negative input")
			}
			return n / 2, nil
		},
		surface.ParamSpec{Name: "n"}))

	e, b := capture(t, reg, "orig")
	rep, err := e.Validate(context.Background(), b, "cand")
	require.NoError(t, err)
	require.False(t, rep.Passed())
	require.Contains(t, rep.Render(), "candidate failed")
}

func TestBaselineFailureMustBeReproduced(t *testing.T) {
	reg := surface.NewRegistry()
	require.NoError(t, reg.AddFunc("orig", "Head",
		func(xs []int) int { return xs[0] }, // panics on empty input
		surface.ParamSpec{Name: "xs"}))
	require.NoError(t, reg.AddFunc("fixed", "Head",
		func(xs []int) int {
			if len(xs) == 0 {
				return 0
			}
			return xs[0]
		},
		surface.ParamSpec{Name: "xs"}))

	e, b := capture(t, reg, "orig")
	rep, err := e.Validate(context.Background(), b, "fixed")
	require.NoError(t, err)
	// "Fixing" the panic is a behavior change; the candidate must fail
	// the same way the original did.
	require.False(t, rep.Passed())
	require.Contains(t, rep.Render(), "where baseline failed")
}

func TestCandidateTimeoutIsErrorNotCrash(t *testing.T) {
	cfg := testConfig()
	cfg.CallTimeout = "50ms"

	reg := surface.NewRegistry()
	require.NoError(t, reg.AddFunc("orig", "Wait",
		func(ms int) int { return ms },
		surface.ParamSpec{Name: "ms"}))
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	require.NoError(t, reg.AddFunc("slow", "Wait",
		func(ms int) int { <-block; return ms },
		surface.ParamSpec{Name: "ms"}))

	e := New(reg, cfg)
	b, err := e.Capture(context.Background(), "orig")
	require.NoError(t, err)

	rep, err := e.Validate(context.Background(), b, "slow")
	require.NoError(t, err)
	require.False(t, rep.Passed())
	for _, res := range rep.Results {
		if res.Symbol == "Wait" && res.Category == report.CategoryOutput {
			require.Equal(t, report.StatusError, res.Status)
			require.Contains(t, res.Detail, "timeout")
		}
	}
}

func TestSignatureDriftReported(t *testing.T) {
	reg := surface.NewRegistry()
	require.NoError(t, reg.AddFunc("orig", "Scale",
		func(factor float64) float64 { return factor * 2 },
		surface.ParamSpec{Name: "factor"}))
	require.NoError(t, reg.AddFunc("cand", "Scale",
		func(factor float64, offset float64) float64 { return factor*2 + offset },
		surface.ParamSpec{Name: "factor"}, surface.ParamSpec{Name: "offset"}))

	e, b := capture(t, reg, "orig")
	rep, err := e.Validate(context.Background(), b, "cand")
	require.NoError(t, err)
	require.False(t, rep.Passed())
	require.Contains(t, rep.Render(), "signature drifted")
}

func TestSignatureDriftOnUntestedFunction(t *testing.T) {
	reg := surface.NewRegistry()
	type blob struct{ C chan int }
	require.NoError(t, reg.AddFunc("orig", "Mystery",
		func(b blob) int { return 0 }, surface.ParamSpec{Name: "payload"}))
	require.NoError(t, reg.AddFunc("cand", "Mystery",
		func(b blob, extra int) int { return extra },
		surface.ParamSpec{Name: "payload"}, surface.ParamSpec{Name: "extra"}))

	e, b := capture(t, reg, "orig")
	rep, err := e.Validate(context.Background(), b, "cand")
	require.NoError(t, err)
	// Output comparison cannot catch this one (no recorded cases), so
	// the existence stage must.
	require.False(t, rep.Passed())
	require.Contains(t, rep.Render(), "signature drifted")
	require.Equal(t, 1, rep.Summary.Untested, "the coverage gap stays visible alongside the drift")
}

func TestCollectAllErrors(t *testing.T) {
	reg := surface.NewRegistry()
	originalModule(t, reg, "anim")
	// Candidate is broken in several independent ways at once: one
	// constant changed, one function missing, one function drifted.
	require.NoError(t, reg.AddConst("broken", "FrameRate", 60))
	require.NoError(t, reg.AddConst("broken", "Epsilon", 0.1+0.2))
	require.NoError(t, reg.AddFunc("broken", "GetFrameFromTime",
		func(time float64) int { return int(time * 60) },
		surface.ParamSpec{Name: "time"}))

	e, b := capture(t, reg, "anim")
	rep, err := e.Validate(context.Background(), b, "broken")
	require.NoError(t, err)
	require.False(t, rep.Passed())

	rendered := rep.Render()
	require.Contains(t, rendered, "FrameRate", "constant mismatch must be reported")
	require.Contains(t, rendered, "Clamp01", "missing function must be reported")
	var outputFails int
	for _, res := range rep.Results {
		if res.Symbol == "GetFrameFromTime" && res.Status == report.StatusFail {
			outputFails++
		}
	}
	require.Greater(t, outputFails, 1, "every diverging case must be enumerated, not just the first")
}

func TestUntestedSurfacedProminently(t *testing.T) {
	reg := surface.NewRegistry()
	type blob struct{ C chan int }
	require.NoError(t, reg.AddFunc("orig", "Mystery",
		func(b blob) int { return 0 }, surface.ParamSpec{Name: "payload"}))
	require.NoError(t, reg.AddFunc("cand", "Mystery",
		func(b blob) int { return 1 }, surface.ParamSpec{Name: "payload"}))

	e, b := capture(t, reg, "orig")
	rep, err := e.Validate(context.Background(), b, "cand")
	require.NoError(t, err)
	require.True(t, rep.Passed(), "untested must not fail the run")
	require.Equal(t, 1, rep.Summary.Untested)
	require.Contains(t, rep.Render(), "coverage gaps")
}

func TestValidateManyIndependentRuns(t *testing.T) {
	reg := surface.NewRegistry()
	originalModule(t, reg, "anim")
	originalModule(t, reg, "good")
	require.NoError(t, reg.AddConst("bad", "FrameRate", 24))
	require.NoError(t, reg.AddConst("bad", "Epsilon", 0.1+0.2))
	require.NoError(t, reg.AddFunc("bad", "GetFrameFromTime",
		func(time float64) int { return int(time * 24) },
		surface.ParamSpec{Name: "time"}))
	require.NoError(t, reg.AddFunc("bad", "Clamp01",
		func(ratio float64) float64 { return min(max(ratio, 0), 1) },
		surface.ParamSpec{Name: "ratio"}))

	e, b := capture(t, reg, "anim")
	reports, err := e.ValidateMany(context.Background(), b, []string{"good", "bad"})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.True(t, reports[0].Passed())
	require.False(t, reports[1].Passed())
}

func TestImportFailureEscalates(t *testing.T) {
	reg := surface.NewRegistry()
	e := New(reg, testConfig())

	_, err := e.Capture(context.Background(), "nonexistent")
	require.ErrorIs(t, err, surface.ErrImport)

	originalModule(t, reg, "anim")
	_, b := capture(t, reg, "anim")
	_, err = e.Validate(context.Background(), b, "nonexistent")
	require.ErrorIs(t, err, surface.ErrImport)
}

func TestValidateNeverMutatesBaseline(t *testing.T) {
	reg := surface.NewRegistry()
	originalModule(t, reg, "anim")
	e, b := capture(t, reg, "anim")

	before := len(b.Constants) + len(b.Functions)
	_, err := e.Validate(context.Background(), b, "anim")
	require.NoError(t, err)
	require.Equal(t, before, len(b.Constants)+len(b.Functions))
	rec := b.Functions["GetFrameFromTime"]
	require.Len(t, rec.Cases, 4)
}
