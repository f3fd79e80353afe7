// Package logging provides categorized structured logging for parity runs.
// Every engine subsystem logs through a named child logger so output can
// be filtered per category. The package is a nop until Init installs a
// real logger; library embedders that never call Init stay silent.
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Category names one engine subsystem.
type Category string

const (
	CategoryLoad    Category = "load"    // module loading, symbol tables
	CategoryCapture Category = "capture" // baseline recording
	CategorySynth   Category = "synth"   // input synthesis
	CategoryInvoke  Category = "invoke"  // bounded target calls
	CategoryCompare Category = "compare" // equivalence checks
	CategoryReport  Category = "report"  // report assembly
	CategoryStore   Category = "store"   // run history database
	CategoryWatch   Category = "watch"   // candidate directory watching
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	loggers = make(map[Category]*zap.Logger)
)

// Init installs the process logger and resets the category cache.
// Call once at startup, before any engine work.
func Init(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
	loggers = make(map[Category]*zap.Logger)
}

// Sync flushes buffered entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Get returns the named logger for a category.
func Get(c Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}
	l := root.Named(string(c))
	loggers[c] = l
	return l
}

// Per-category accessors.

func Load() *zap.Logger    { return Get(CategoryLoad) }
func Capture() *zap.Logger { return Get(CategoryCapture) }
func Synth() *zap.Logger   { return Get(CategorySynth) }
func Invoke() *zap.Logger  { return Get(CategoryInvoke) }
func Compare() *zap.Logger { return Get(CategoryCompare) }
func Report() *zap.Logger  { return Get(CategoryReport) }
func Store() *zap.Logger   { return Get(CategoryStore) }
func Watch() *zap.Logger   { return Get(CategoryWatch) }

// Timer measures one operation and logs the duration on Stop.
type Timer struct {
	log   *zap.Logger
	op    string
	start time.Time
}

// StartTimer begins timing an operation in a category.
func StartTimer(c Category, op string) *Timer {
	return &Timer{log: Get(c), op: op, start: time.Now()}
}

// Stop logs the elapsed time at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.log.Debug("operation complete", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs a warning when the operation ran longer than
// the threshold, debug otherwise.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		t.log.Warn("slow operation",
			zap.String("op", t.op),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
		return elapsed
	}
	t.log.Debug("operation complete", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	return elapsed
}
