package action

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is implemented by the typed payloads of each action type.
type Payload interface {
	ActionType() Type
	Validate() error
}

// VisitCheckInPayload records the start of a visit for electronic visit
// verification.
type VisitCheckInPayload struct {
	VisitID       string    `json:"visit_id"`
	ClientID      string    `json:"client_id"`
	RecordVersion int64     `json:"record_version"`
	CheckInTime   time.Time `json:"check_in_time"`
	Latitude      float64   `json:"latitude,omitempty"`
	Longitude     float64   `json:"longitude,omitempty"`
}

func (p VisitCheckInPayload) ActionType() Type { return TypeVisitCheckIn }

func (p VisitCheckInPayload) Validate() error {
	if p.VisitID == "" {
		return fmt.Errorf("%w: visit_id is required", ErrInvalidPayload)
	}
	if p.CheckInTime.IsZero() {
		return fmt.Errorf("%w: check_in_time is required", ErrInvalidPayload)
	}
	return nil
}

// VisitCheckOutPayload records the end of a visit.
type VisitCheckOutPayload struct {
	VisitID       string    `json:"visit_id"`
	ClientID      string    `json:"client_id"`
	RecordVersion int64     `json:"record_version"`
	CheckOutTime  time.Time `json:"check_out_time"`
	Latitude      float64   `json:"latitude,omitempty"`
	Longitude     float64   `json:"longitude,omitempty"`
	SignatureRef  string    `json:"signature_ref,omitempty"`
}

func (p VisitCheckOutPayload) ActionType() Type { return TypeVisitCheckOut }

func (p VisitCheckOutPayload) Validate() error {
	if p.VisitID == "" {
		return fmt.Errorf("%w: visit_id is required", ErrInvalidPayload)
	}
	if p.CheckOutTime.IsZero() {
		return fmt.Errorf("%w: check_out_time is required", ErrInvalidPayload)
	}
	return nil
}

// TaskCompletePayload marks a care-plan task as completed during a visit.
type TaskCompletePayload struct {
	VisitID       string    `json:"visit_id"`
	TaskID        string    `json:"task_id"`
	RecordVersion int64     `json:"record_version"`
	CompletedAt   time.Time `json:"completed_at"`
	Notes         string    `json:"notes,omitempty"`
}

func (p TaskCompletePayload) ActionType() Type { return TypeTaskComplete }

func (p TaskCompletePayload) Validate() error {
	if p.VisitID == "" || p.TaskID == "" {
		return fmt.Errorf("%w: visit_id and task_id are required", ErrInvalidPayload)
	}
	return nil
}

// CareNotePayload documents a visit note. The optional detail structs
// replace the loosely-typed side-channel fields the mobile screens used to
// bolt onto a note record: each subtype is fully typed and present only
// when that kind of note was taken.
type CareNotePayload struct {
	VisitID       string          `json:"visit_id"`
	NoteID        string          `json:"note_id"`
	RecordVersion int64           `json:"record_version"`
	NoteText      string          `json:"note_text"`
	RecordedAt    time.Time       `json:"recorded_at"`
	Activity      *ActivityDetail `json:"activity,omitempty"`
	Mood          *MoodDetail     `json:"mood,omitempty"`
	Incident      *IncidentDetail `json:"incident,omitempty"`
}

// ActivityDetail describes an activity performed with the client.
type ActivityDetail struct {
	Category        string `json:"category"`
	DurationMinutes int    `json:"duration_minutes"`
}

// MoodDetail captures an observed mood rating.
type MoodDetail struct {
	Rating      int    `json:"rating"`
	Observation string `json:"observation,omitempty"`
}

// IncidentDetail captures an incident report attached to a note.
type IncidentDetail struct {
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (p CareNotePayload) ActionType() Type { return TypeCareNote }

func (p CareNotePayload) Validate() error {
	if p.VisitID == "" {
		return fmt.Errorf("%w: visit_id is required", ErrInvalidPayload)
	}
	if p.NoteText == "" {
		return fmt.Errorf("%w: note_text is required", ErrInvalidPayload)
	}
	if p.Mood != nil && (p.Mood.Rating < 1 || p.Mood.Rating > 5) {
		return fmt.Errorf("%w: mood rating must be between 1 and 5", ErrInvalidPayload)
	}
	return nil
}

// Marshal validates a typed payload and encodes it for storage in a
// QueuedAction.
func Marshal(p Payload) (json.RawMessage, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.ActionType(), err)
	}
	return data, nil
}
