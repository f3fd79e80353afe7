package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"paritycheck/internal/baseline"
	"paritycheck/internal/config"
	"paritycheck/internal/logging"
	"paritycheck/internal/report"
	"paritycheck/internal/store"
	"paritycheck/internal/surface"
	"paritycheck/internal/validate"
)

var (
	// Global flags
	cfgPath string
	verbose bool
	plain   bool

	cfg    *config.Config
	logger *zap.Logger
)

// errParityFailed signals a completed validation whose overall status
// is fail. It maps to a non-zero exit code without printing a stack of
// cobra usage text.
var errParityFailed = errors.New("validation failed")

var rootCmd = &cobra.Command{
	Use:   "parity",
	Short: "parity - behavioral-equivalence validation for refactored Go modules",
	Long: `parity checks that a refactored Go module preserves the externally
observable behavior of the original, with no hand-written tests.

Workflow:
  1. parity capture <original-dir>      records a baseline snapshot
  2. parity validate <ref> <candidate>  replays it against the candidate

The baseline stores the original's exported constants and the observed
outputs of its exported functions over synthesized inputs. Validation
exits 0 only when every required check passes; coverage gaps are
reported as untested, never silently passed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		zcfg := zap.NewProductionConfig()
		if cfg.Logging.Format == "text" {
			zcfg.Encoding = "console"
			zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		}
		level := zapcore.InfoLevel
		if err := level.Set(cfg.Logging.Level); err != nil {
			level = zapcore.InfoLevel
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Init(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var captureCmd = &cobra.Command{
	Use:   "capture [module-dir]",
	Short: "Record a baseline snapshot of the original module",
	Long: `Loads the module from a directory of Go source files, snapshots its
exported constants, synthesizes test inputs for its exported functions,
and records every observed output (or failure kind) as ground truth.
The baseline artifact is self-contained; later validations do not need
the original module on disk.`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

var validateCmd = &cobra.Command{
	Use:   "validate [baseline-ref] [candidate-dir]",
	Short: "Validate a candidate module against a recorded baseline",
	Long: `Runs the full check sequence against the candidate: structural
(symbol presence), constants, function existence, and function outputs.
All stages always run; the report lists every discrepancy found, plus
untested functions and informational extra symbols.

baseline-ref is either the original module directory the baseline was
captured from, or a direct path to a baseline .json artifact.

Exit code 0 means overall pass.`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect or remove stored baseline artifacts",
}

var baselineShowCmd = &cobra.Command{
	Use:   "show [baseline-ref]",
	Short: "Print a summary of a stored baseline",
	Args:  cobra.ExactArgs(1),
	RunE:  runBaselineShow,
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored baselines",
	Args:  cobra.NoArgs,
	RunE:  runBaselineList,
}

var baselineResetCmd = &cobra.Command{
	Use:   "reset [module-id]",
	Short: "Delete a stored baseline artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := baselineStore().Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Baseline for %s removed.\n", args[0])
		return nil
	},
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent validation runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var watchCmd = &cobra.Command{
	Use:   "watch [baseline-ref] [candidate-dir]",
	Short: "Re-validate the candidate whenever its sources change",
	Long: `Watches the candidate directory and re-runs the validation after
changes settle. Each run prints a one-line summary; failed runs print
the full report. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "plain markdown output (no terminal styling)")

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")

	baselineCmd.AddCommand(baselineShowCmd, baselineListCmd, baselineResetCmd)
	rootCmd.AddCommand(captureCmd, validateCmd, baselineCmd, runsCmd, watchCmd)
}

func baselineStore() *baseline.Store {
	return baseline.NewStore(cfg.ArtifactsDir)
}

func newEngine() *validate.Engine {
	return validate.New(surface.NewYaegiLoader(), cfg)
}

func runCapture(cmd *cobra.Command, args []string) error {
	moduleDir := args[0]
	b, err := newEngine().Capture(cmd.Context(), moduleDir)
	if err != nil {
		return err
	}
	path, err := baselineStore().Save(b)
	if err != nil {
		return err
	}
	fmt.Printf("Baseline captured: %d constants, %d functions (%d existence-only)\n",
		len(b.Constants), len(b.Functions), len(b.ExistenceOnly))
	fmt.Printf("Saved to %s\n", path)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	ref, candidate := args[0], args[1]

	b, err := baselineStore().Load(ref)
	if err != nil {
		return err
	}

	started := time.Now()
	rep, err := newEngine().Validate(cmd.Context(), b, candidate)
	if err != nil {
		return err
	}
	elapsed := time.Since(started)

	fmt.Println(renderReport(rep))
	fmt.Println(statusLine(rep))
	recordRun(rep, elapsed)

	if !rep.Passed() {
		return errParityFailed
	}
	return nil
}

func runBaselineShow(cmd *cobra.Command, args []string) error {
	b, err := baselineStore().Load(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Module:    %s\n", b.ModuleID)
	fmt.Printf("Captured:  %s\n", b.CapturedAt.Format(time.RFC3339))
	fmt.Printf("Constants: %d\n", len(b.Constants))
	fmt.Printf("Functions: %d\n", len(b.Functions))
	if len(b.ExistenceOnly) > 0 {
		fmt.Printf("Existence-only: %d\n", len(b.ExistenceOnly))
	}
	cases := 0
	untested := 0
	for _, rec := range b.Functions {
		cases += len(rec.Cases)
		if rec.Untested != "" {
			untested++
		}
	}
	fmt.Printf("Recorded cases: %d", cases)
	if untested > 0 {
		fmt.Printf(" (%d functions untested)", untested)
	}
	fmt.Println()
	return nil
}

func runBaselineList(cmd *cobra.Command, args []string) error {
	ids, err := baselineStore().List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No baselines stored.")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	s, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.RecentRuns(runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	fmt.Printf("%-36s  %-6s  %-30s  %5s %5s %5s %8s  %s\n",
		"RUN", "STATUS", "CANDIDATE", "PASS", "FAIL", "ERR", "UNTESTED", "WHEN")
	for _, r := range runs {
		fmt.Printf("%-36s  %-6s  %-30s  %5d %5d %5d %8d  %s\n",
			r.ID, r.Status, truncate(r.ModuleID, 30),
			r.Pass, r.Fail, r.Errors, r.Untested,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// recordRun appends the run to history. History is bookkeeping; a
// recording problem is logged, never surfaced as a command failure.
func recordRun(rep *report.ValidationReport, elapsed time.Duration) {
	s, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logging.Store().Warn("run history unavailable", zap.Error(err))
		return
	}
	defer s.Close()
	if _, err := s.RecordReport(rep, elapsed); err != nil {
		logging.Store().Warn("run not recorded", zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n+3:]
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errParityFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
