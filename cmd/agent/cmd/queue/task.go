package queue

import (
	"fmt"

	"github.com/spf13/cobra"

	"careline/internal/app/agent"
	"careline/internal/domain/action"
	"careline/internal/domain/optimistic"
)

var (
	taskVisit   string
	taskID      string
	taskTime    string
	taskVersion int64
	taskNotes   string
)

var TaskCmd = &cobra.Command{
	Use:   "task",
	Short: "Queue a care-plan task completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cmd.Context().Value("app").(*agent.App)
		if app == nil {
			return fmt.Errorf("application is not initialized")
		}

		at, err := parseEventTime(taskTime)
		if err != nil {
			return err
		}

		payload := action.TaskCompletePayload{
			VisitID:       taskVisit,
			TaskID:        taskID,
			RecordVersion: taskVersion,
			CompletedAt:   at,
			Notes:         taskNotes,
		}

		qa, err := app.SubmitAction(cmd.Context(), payload, taskID, optimistic.OperationUpdate)
		if err != nil {
			return fmt.Errorf("queue task completion: %w", err)
		}

		fmt.Printf("Task %s marked complete and queued (%s)\n", taskID, shortID(qa.ID))
		return nil
	},
}

func init() {
	TaskCmd.Flags().StringVar(&taskVisit, "visit", "", "visit identifier")
	TaskCmd.Flags().StringVar(&taskID, "task", "", "task identifier")
	TaskCmd.Flags().StringVar(&taskTime, "time", "", "completion time, RFC3339 (default now)")
	TaskCmd.Flags().Int64Var(&taskVersion, "version", 0, "record version the change is based on")
	TaskCmd.Flags().StringVar(&taskNotes, "notes", "", "free-form completion notes")
	_ = TaskCmd.MarkFlagRequired("visit")
	_ = TaskCmd.MarkFlagRequired("task")
}
