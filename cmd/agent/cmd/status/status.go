package status

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"careline/internal/app/agent"
	"careline/internal/domain/action"
)

var statusJSON bool

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent status",
	Long: `Show a snapshot of the agent: connectivity, pending queue depth by
priority, unconfirmed optimistic updates, conflicts awaiting a decision
and the time of the last sync cycle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cmd.Context().Value("app").(*agent.App)
		if app == nil {
			return fmt.Errorf("application is not initialized")
		}

		ctx := cmd.Context()

		queueStats, err := app.Queue().Stats(ctx)
		if err != nil {
			return fmt.Errorf("read queue stats: %w", err)
		}
		ledgerStats, err := app.Ledger().GetStats(ctx)
		if err != nil {
			return fmt.Errorf("read ledger stats: %w", err)
		}

		m := app.Manager()
		pending := m.PendingConflicts()

		if statusJSON {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{
				"online":             m.Online(),
				"sync_in_progress":   m.InProgress(),
				"last_sync":          m.LastSync(),
				"queued":             queueStats,
				"optimistic_pending": ledgerStats.Pending,
				"conflicts":          len(pending),
			})
		}

		fmt.Println("=== CareLine Agent ===")
		fmt.Println()

		fmt.Printf("Connectivity:        %s\n", onlineLabel(m.Online()))
		if m.InProgress() {
			fmt.Println("Sync:                running")
		} else if m.LastSync().IsZero() {
			fmt.Println("Sync:                never ran")
		} else {
			fmt.Printf("Sync:                last at %s\n", m.LastSync().Format("2006-01-02 15:04:05"))
		}
		fmt.Println()

		fmt.Printf("Queued actions:      %d\n", queueStats.Total)
		fmt.Printf("  critical:          %d\n", queueStats.ByPriority[action.PriorityCritical])
		fmt.Printf("  normal:            %d\n", queueStats.ByPriority[action.PriorityNormal])
		fmt.Printf("  low:               %d\n", queueStats.ByPriority[action.PriorityLow])
		fmt.Printf("Unconfirmed writes:  %d\n", ledgerStats.Pending)

		if len(pending) > 0 {
			fmt.Printf("Conflicts:           %s\n",
				color.New(color.FgYellow).Sprintf("%d awaiting a decision", len(pending)))
			fmt.Println()
			fmt.Println("Run 'careline conflicts list' to review them.")
		} else {
			fmt.Println("Conflicts:           none")
		}

		return nil
	},
}

func onlineLabel(online bool) string {
	if online {
		return color.New(color.FgGreen).Sprint("online")
	}
	return color.New(color.FgRed).Sprint("offline")
}

func init() {
	StatusCmd.Flags().BoolVar(&statusJSON, "json", false, "output in JSON format")
}
