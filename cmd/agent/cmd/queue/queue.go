package queue

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var QueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Work with the offline action queue",
	Long: `Inspect and feed the offline action queue.

Every mutation made in the field is queued locally first and replayed
against the agency backend by the sync loop. The enqueue subcommands
(check-in, check-out, task, note) apply the optimistic flow: the change
is recorded in the ledger and queued in one step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// parseEventTime turns a --time flag value into a timestamp, defaulting to
// now when the flag was left empty.
func parseEventTime(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, want RFC3339: %w", value, err)
	}
	return t.UTC(), nil
}
