package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"careline/internal/app/agent"
)

var listFormat string

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending actions",
	Long:  `List queued actions in send order: priority first, then enqueue time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cmd.Context().Value("app").(*agent.App)
		if app == nil {
			return fmt.Errorf("application is not initialized")
		}

		items, err := app.Queue().Items(cmd.Context())
		if err != nil {
			return fmt.Errorf("list queued actions: %w", err)
		}

		if listFormat == "json" {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(items)
		}

		if len(items) == 0 {
			fmt.Println("The queue is empty")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tType\tPriority\tQueued\tRetries\t\n")
		fmt.Fprintf(w, "---\t---\t---\t---\t---\t\n")
		for _, a := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t\n",
				shortID(a.ID),
				a.Type,
				a.Priority.String(),
				a.Timestamp.Format("2006-01-02 15:04:05"),
				a.Retries,
			)
		}
		w.Flush()

		fmt.Printf("\nTotal pending: %d\n", len(items))
		return nil
	},
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func init() {
	ListCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, json)")
}
