package conflicts

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"careline/internal/app/agent"
)

var listJSON bool

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conflicts awaiting a decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cmd.Context().Value("app").(*agent.App)
		if app == nil {
			return fmt.Errorf("application is not initialized")
		}

		pending := app.Manager().PendingConflicts()

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(pending)
		}

		if len(pending) == 0 {
			fmt.Println("No conflicts awaiting a decision")
			return nil
		}

		header := color.New(color.FgYellow, color.Bold)
		for _, pc := range pending {
			res := pc.Resolution
			header.Printf("Action %s: %s %s\n", pc.ActionID, res.RecordType, res.RecordID)
			fmt.Printf("  detected %s\n", res.DetectedAt.Format("2006-01-02 15:04:05"))
			for _, fc := range res.FieldConflicts {
				fmt.Printf("  %s:\n", fc.Field)
				fmt.Printf("    yours:  %v\n", fc.ClientValue)
				fmt.Printf("    server: %v\n", fc.ServerValue)
			}
			fmt.Println()
		}

		fmt.Println("Resolve with: careline conflicts resolve --action <id> --strategy <client|server|field-by-field>")
		return nil
	},
}

func init() {
	ListCmd.Flags().BoolVar(&listJSON, "json", false, "output in JSON format")
}
