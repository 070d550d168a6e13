package sync

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"careline/internal/app/agent"
)

var (
	retryFailed bool
	showHistory bool
	watch       bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync queued actions with the backend",
	Long: `Run a sync cycle against the agency backend.

By default the pending queue is drained once, in priority order. With
--retry-failed only actions past the automatic retry cap are attempted.
With --watch the agent stays running: connectivity is probed and the
queue drained on the configured interval until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cmd.Context().Value("app").(*agent.App)
		if app == nil {
			return fmt.Errorf("application is not initialized")
		}

		if showHistory {
			return printHistory(app)
		}
		if watch {
			return runWatch(cmd.Context(), app)
		}
		return runOnce(cmd.Context(), app, retryFailed)
	},
}

func runOnce(ctx context.Context, app *agent.App, failedOnly bool) error {
	m := app.Manager()

	size, err := app.Queue().Size(ctx)
	if err != nil {
		return fmt.Errorf("read queue size: %w", err)
	}
	if size == 0 {
		fmt.Println("Nothing to sync")
		return nil
	}

	fmt.Printf("Syncing %d pending action(s)...\n", size)
	start := time.Now()

	if failedOnly {
		err = m.RetryFailed(ctx)
	} else {
		err = m.ManualSync(ctx)
	}
	switch {
	case errors.Is(err, agent.ErrOffline):
		return fmt.Errorf("the backend is unreachable; actions stay queued")
	case errors.Is(err, agent.ErrSyncInProgress):
		fmt.Println("A sync cycle is already running")
		return nil
	case err != nil:
		return fmt.Errorf("sync: %w", err)
	}

	remaining, err := app.Queue().Size(ctx)
	if err != nil {
		return fmt.Errorf("read queue size: %w", err)
	}

	fmt.Printf("Done in %v\n", time.Since(start).Round(time.Millisecond))
	if remaining > 0 {
		fmt.Printf("%d action(s) still pending\n", remaining)
	}
	if pending := m.PendingConflicts(); len(pending) > 0 {
		fmt.Println(color.New(color.FgYellow).Sprintf(
			"%d conflict(s) need a decision; run 'careline conflicts list'", len(pending)))
	}
	return nil
}

func runWatch(ctx context.Context, app *agent.App) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	unsubscribe := app.Manager().Subscribe(func(e agent.Event) {
		switch e.Kind {
		case agent.EventActionSynced:
			fmt.Printf("synced %s\n", e.ActionID)
		case agent.EventConflictDetected:
			fmt.Println(color.New(color.FgYellow).Sprintf("conflict on %s", e.ActionID))
		case agent.EventRollbackRequired:
			fmt.Println(color.New(color.FgRed).Sprintf("rolled back %s", e.ActionID))
		}
	})
	defer unsubscribe()

	app.Start(ctx)
	defer app.Stop()

	fmt.Println("Watching for connectivity; press Ctrl+C to stop")
	<-ctx.Done()
	fmt.Println()
	return nil
}

func printHistory(app *agent.App) error {
	entries := app.Manager().History()
	if len(entries) == 0 {
		fmt.Println("No sync history yet")
		return nil
	}

	for _, e := range entries {
		mark := color.New(color.FgGreen).Sprint("ok")
		if !e.Success {
			mark = color.New(color.FgRed).Sprint("fail")
		}

		line := fmt.Sprintf("%s  %-4s", e.Timestamp.Format("2006-01-02 15:04:05"), mark)
		if e.ActionID != "" {
			line += fmt.Sprintf("  %s (%s)", e.ActionID, e.ActionType)
		} else {
			line += fmt.Sprintf("  cycle, %d change(s)", e.ChangesCount)
		}
		if e.Error != "" {
			line += "  " + e.Error
		}
		fmt.Println(line)
	}
	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "re-attempt only actions with failed attempts")
	SyncCmd.Flags().BoolVar(&showHistory, "history", false, "print the recent sync history")
	SyncCmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and sync on the configured interval")
}
