package conflicts

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"careline/internal/app/agent"
	"careline/internal/domain/conflict"
)

var (
	resolveAction   string
	resolveStrategy string
	resolveFields   []string
	resolveUser     string
)

var ResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a parked conflict",
	Long: `Apply a decision to a conflict and re-submit the action.

Strategies:
  client          keep your pending values for every conflicting field
  server          accept the server's record and undo the local change
  field-by-field  decide per field with repeated --field name=client|server

With field-by-field every conflicting field must be covered; a partial
decision is rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cmd.Context().Value("app").(*agent.App)
		if app == nil {
			return fmt.Errorf("application is not initialized")
		}

		pc, err := findPending(app, resolveAction)
		if err != nil {
			return err
		}

		manual := &conflict.ManualResolution{
			RecordID:         pc.Resolution.RecordID,
			RecordType:       pc.Resolution.RecordType,
			SelectedStrategy: conflict.Strategy(resolveStrategy),
			UserID:           resolveUser,
			Timestamp:        time.Now().UTC(),
		}

		if len(resolveFields) > 0 {
			manual.FieldResolutions = make(map[string]conflict.Side, len(resolveFields))
			for _, pair := range resolveFields {
				field, side, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("malformed --field %q, want name=client|server", pair)
				}
				manual.FieldResolutions[field] = conflict.Side(side)
			}
		}

		if err := app.Manager().Resolve(cmd.Context(), pc.ActionID, manual); err != nil {
			return fmt.Errorf("resolve conflict: %w", err)
		}

		fmt.Printf("Conflict on action %s resolved with strategy %q\n", pc.ActionID, resolveStrategy)
		return nil
	},
}

func init() {
	ResolveCmd.Flags().StringVar(&resolveAction, "action", "", "parked action id (a unique prefix works)")
	ResolveCmd.Flags().StringVar(&resolveStrategy, "strategy", "", "client, server or field-by-field")
	ResolveCmd.Flags().StringArrayVar(&resolveFields, "field", nil, "per-field decision, repeatable: name=client|server")
	ResolveCmd.Flags().StringVar(&resolveUser, "user", "", "caregiver making the decision")
	_ = ResolveCmd.MarkFlagRequired("action")
	_ = ResolveCmd.MarkFlagRequired("strategy")
	_ = ResolveCmd.MarkFlagRequired("user")
}
