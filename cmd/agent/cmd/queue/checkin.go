package queue

import (
	"fmt"

	"github.com/spf13/cobra"

	"careline/internal/app/agent"
	"careline/internal/domain/action"
	"careline/internal/domain/optimistic"
)

var (
	checkInVisit   string
	checkInClient  string
	checkInTime    string
	checkInVersion int64
	checkInLat     float64
	checkInLon     float64
)

var CheckInCmd = &cobra.Command{
	Use:   "check-in",
	Short: "Queue a visit check-in",
	Long: `Queue an electronic visit verification check-in. The event is shown
as applied immediately and synced to the backend when connectivity allows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cmd.Context().Value("app").(*agent.App)
		if app == nil {
			return fmt.Errorf("application is not initialized")
		}

		at, err := parseEventTime(checkInTime)
		if err != nil {
			return err
		}

		payload := action.VisitCheckInPayload{
			VisitID:       checkInVisit,
			ClientID:      checkInClient,
			RecordVersion: checkInVersion,
			CheckInTime:   at,
			Latitude:      checkInLat,
			Longitude:     checkInLon,
		}

		qa, err := app.SubmitAction(cmd.Context(), payload, checkInVisit, optimistic.OperationUpdate)
		if err != nil {
			return fmt.Errorf("queue check-in: %w", err)
		}

		fmt.Printf("Check-in for visit %s queued (%s, priority %s)\n",
			checkInVisit, shortID(qa.ID), qa.Priority.String())
		return nil
	},
}

func init() {
	CheckInCmd.Flags().StringVar(&checkInVisit, "visit", "", "visit identifier")
	CheckInCmd.Flags().StringVar(&checkInClient, "client", "", "client identifier")
	CheckInCmd.Flags().StringVar(&checkInTime, "time", "", "check-in time, RFC3339 (default now)")
	CheckInCmd.Flags().Int64Var(&checkInVersion, "version", 0, "record version the change is based on")
	CheckInCmd.Flags().Float64Var(&checkInLat, "lat", 0, "latitude at check-in")
	CheckInCmd.Flags().Float64Var(&checkInLon, "lon", 0, "longitude at check-in")
	_ = CheckInCmd.MarkFlagRequired("visit")
}
