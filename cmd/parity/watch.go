package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"paritycheck/internal/logging"
)

// runWatch re-validates the candidate after its sources stop changing.
// Events are debounced so one save burst triggers one run. Only .go
// file changes count; editors writing swap files must not cause runs.
func runWatch(cmd *cobra.Command, args []string) error {
	ref, candidate := args[0], args[1]

	b, err := baselineStore().Load(ref)
	if err != nil {
		return err
	}
	engine := newEngine()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(candidate); err != nil {
		return fmt.Errorf("watching %s: %w", candidate, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	debounce := cfg.GetWatchDebounce()
	log := logging.Watch()

	runOnce := func() {
		started := time.Now()
		rep, err := engine.Validate(ctx, b, candidate)
		if err != nil {
			fmt.Printf("%s  %v\n", time.Now().Format("15:04:05"), err)
			return
		}
		elapsed := time.Since(started)
		fmt.Printf("%s  %s\n", time.Now().Format("15:04:05"), statusLine(rep))
		if !rep.Passed() {
			fmt.Println(renderReport(rep))
		}
		recordRun(rep, elapsed)
	}

	fmt.Printf("Watching %s (baseline %s). Ctrl-C to stop.\n", candidate, b.ModuleID)
	runOnce()

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped.")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".go") {
				continue
			}
			log.Debug("change detected", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))

		case <-pending:
			runOnce()
		}
	}
}
