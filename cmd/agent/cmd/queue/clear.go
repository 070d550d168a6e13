package queue

import (
	"fmt"

	"github.com/spf13/cobra"

	"careline/internal/app/agent"
)

var clearConfirmed bool

var ClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all pending actions",
	Long: `Destructively remove every queued action. Unsent documentation is
lost; this is a troubleshooting command and requires --yes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cmd.Context().Value("app").(*agent.App)
		if app == nil {
			return fmt.Errorf("application is not initialized")
		}

		if !clearConfirmed {
			return fmt.Errorf("refusing to drop pending documentation without --yes")
		}

		if err := app.Queue().Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clear queue: %w", err)
		}

		fmt.Println("Queue cleared")
		return nil
	},
}

func init() {
	ClearCmd.Flags().BoolVar(&clearConfirmed, "yes", false, "confirm dropping all pending actions")
}
