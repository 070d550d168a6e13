package conflicts

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"careline/internal/app/agent"
)

var ConflictCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Review and resolve version conflicts",
	Long: `Work with actions blocked on a version conflict.

When the backend rejects a queued change because the record was modified
elsewhere, and no automatic policy covers the differing fields, the
action is parked until a caregiver decides per field which value stands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// findPending resolves an action id, allowing an unambiguous prefix.
func findPending(app *agent.App, id string) (agent.PendingConflict, error) {
	var match agent.PendingConflict
	found := 0
	for _, pc := range app.Manager().PendingConflicts() {
		if pc.ActionID == id {
			return pc, nil
		}
		if strings.HasPrefix(pc.ActionID, id) {
			match = pc
			found++
		}
	}
	switch found {
	case 1:
		return match, nil
	case 0:
		return agent.PendingConflict{}, fmt.Errorf("no pending conflict for action %q", id)
	default:
		return agent.PendingConflict{}, fmt.Errorf("action id %q is ambiguous", id)
	}
}
