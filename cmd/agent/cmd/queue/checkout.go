package queue

import (
	"fmt"

	"github.com/spf13/cobra"

	"careline/internal/app/agent"
	"careline/internal/domain/action"
	"careline/internal/domain/optimistic"
)

var (
	checkOutVisit     string
	checkOutClient    string
	checkOutTime      string
	checkOutVersion   int64
	checkOutLat       float64
	checkOutLon       float64
	checkOutSignature string
)

var CheckOutCmd = &cobra.Command{
	Use:   "check-out",
	Short: "Queue a visit check-out",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cmd.Context().Value("app").(*agent.App)
		if app == nil {
			return fmt.Errorf("application is not initialized")
		}

		at, err := parseEventTime(checkOutTime)
		if err != nil {
			return err
		}

		payload := action.VisitCheckOutPayload{
			VisitID:       checkOutVisit,
			ClientID:      checkOutClient,
			RecordVersion: checkOutVersion,
			CheckOutTime:  at,
			Latitude:      checkOutLat,
			Longitude:     checkOutLon,
			SignatureRef:  checkOutSignature,
		}

		qa, err := app.SubmitAction(cmd.Context(), payload, checkOutVisit, optimistic.OperationUpdate)
		if err != nil {
			return fmt.Errorf("queue check-out: %w", err)
		}

		fmt.Printf("Check-out for visit %s queued (%s, priority %s)\n",
			checkOutVisit, shortID(qa.ID), qa.Priority.String())
		return nil
	},
}

func init() {
	CheckOutCmd.Flags().StringVar(&checkOutVisit, "visit", "", "visit identifier")
	CheckOutCmd.Flags().StringVar(&checkOutClient, "client", "", "client identifier")
	CheckOutCmd.Flags().StringVar(&checkOutTime, "time", "", "check-out time, RFC3339 (default now)")
	CheckOutCmd.Flags().Int64Var(&checkOutVersion, "version", 0, "record version the change is based on")
	CheckOutCmd.Flags().Float64Var(&checkOutLat, "lat", 0, "latitude at check-out")
	CheckOutCmd.Flags().Float64Var(&checkOutLon, "lon", 0, "longitude at check-out")
	CheckOutCmd.Flags().StringVar(&checkOutSignature, "signature", "", "reference to the captured signature")
	_ = CheckOutCmd.MarkFlagRequired("visit")
}
