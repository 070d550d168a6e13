package queue

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"careline/internal/app/agent"
	"careline/internal/domain/action"
	"careline/internal/domain/optimistic"
)

var (
	noteVisit       string
	noteID          string
	noteText        string
	noteTime        string
	noteVersion     int64
	noteMood        int
	noteMoodNote    string
	noteActivity    string
	noteActivityMin int
)

var NoteCmd = &cobra.Command{
	Use:   "note",
	Short: "Queue a care note",
	Long: `Queue a care note for a visit. A new note id is generated unless
--note is given, in which case the existing note is updated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cmd.Context().Value("app").(*agent.App)
		if app == nil {
			return fmt.Errorf("application is not initialized")
		}

		at, err := parseEventTime(noteTime)
		if err != nil {
			return err
		}

		op := optimistic.OperationUpdate
		if noteID == "" {
			noteID = uuid.New().String()
			op = optimistic.OperationCreate
		}

		payload := action.CareNotePayload{
			VisitID:       noteVisit,
			NoteID:        noteID,
			RecordVersion: noteVersion,
			NoteText:      noteText,
			RecordedAt:    at,
		}
		if noteMood > 0 {
			payload.Mood = &action.MoodDetail{Rating: noteMood, Observation: noteMoodNote}
		}
		if noteActivity != "" {
			payload.Activity = &action.ActivityDetail{Category: noteActivity, DurationMinutes: noteActivityMin}
		}

		qa, err := app.SubmitAction(cmd.Context(), payload, noteID, op)
		if err != nil {
			return fmt.Errorf("queue care note: %w", err)
		}

		fmt.Printf("Note %s for visit %s queued (%s)\n", shortID(noteID), noteVisit, shortID(qa.ID))
		return nil
	},
}

func init() {
	NoteCmd.Flags().StringVar(&noteVisit, "visit", "", "visit identifier")
	NoteCmd.Flags().StringVar(&noteID, "note", "", "note identifier when updating an existing note")
	NoteCmd.Flags().StringVar(&noteText, "text", "", "note text")
	NoteCmd.Flags().StringVar(&noteTime, "time", "", "recording time, RFC3339 (default now)")
	NoteCmd.Flags().Int64Var(&noteVersion, "version", 0, "record version the change is based on")
	NoteCmd.Flags().IntVar(&noteMood, "mood", 0, "observed mood rating, 1-5")
	NoteCmd.Flags().StringVar(&noteMoodNote, "mood-note", "", "mood observation")
	NoteCmd.Flags().StringVar(&noteActivity, "activity", "", "activity category")
	NoteCmd.Flags().IntVar(&noteActivityMin, "activity-minutes", 0, "activity duration in minutes")
	_ = NoteCmd.MarkFlagRequired("visit")
	_ = NoteCmd.MarkFlagRequired("text")
}
