package visits

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Handler serves the visit mutation endpoints the offline agent replays
// its queue against. State lives in the in-memory Store; this server
// exists so agent behavior (including version conflicts) can be exercised
// without the real agency backend.
type Handler struct {
	store      *Store
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store *Store, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.checkInOp(), h.checkIn)
	huma.Register(api, h.checkOutOp(), h.checkOut)
	huma.Register(api, h.taskCompleteOp(), h.taskComplete)
	huma.Register(api, h.noteUpsertOp(), h.noteUpsert)

	// Simulator control, not part of the agent-facing surface.
	huma.Register(api, h.seedOp(), h.seed)
}

func (h *Handler) checkIn(_ context.Context, input *checkInInput) (*mutationOutput, error) {
	if input.Body["check_in_time"] == nil {
		return nil, huma.Error422UnprocessableEntity("check_in_time is required")
	}
	return h.apply("visit", input.VisitID, "", input.Body)
}

func (h *Handler) checkOut(_ context.Context, input *checkOutInput) (*mutationOutput, error) {
	if input.Body["check_out_time"] == nil {
		return nil, huma.Error422UnprocessableEntity("check_out_time is required")
	}
	return h.apply("visit", input.VisitID, "", input.Body)
}

func (h *Handler) taskComplete(_ context.Context, input *taskCompleteInput) (*mutationOutput, error) {
	return h.apply("task", input.VisitID, input.TaskID, input.Body)
}

func (h *Handler) noteUpsert(_ context.Context, input *noteUpsertInput) (*mutationOutput, error) {
	if text, _ := input.Body["note_text"].(string); text == "" {
		return nil, huma.Error422UnprocessableEntity("note_text is required")
	}
	return h.apply("note", input.VisitID, input.NoteID, input.Body)
}

func (h *Handler) seed(_ context.Context, input *seedInput) (*seedOutput, error) {
	stored := h.store.Seed(input.Body.Kind, input.Body.VisitID, input.Body.RecordID, input.Body.Record)

	h.log.Debug("record seeded",
		"kind", input.Body.Kind,
		"visit_id", input.Body.VisitID,
		"record_id", input.Body.RecordID,
	)
	return &seedOutput{
		Body: seedResponse{
			Status: "Ok",
			Record: stored,
		},
	}, nil
}

func (h *Handler) apply(kind, visitID, recordID string, rec map[string]any) (*mutationOutput, error) {
	stored, err := h.store.Apply(kind, visitID, recordID, rec)
	if err != nil {
		var conflict *VersionConflictError
		if errors.As(err, &conflict) {
			h.log.Info("stale mutation rejected",
				"kind", kind,
				"visit_id", visitID,
				"record_id", recordID,
			)
			return &mutationOutput{
				Status: http.StatusConflict,
				Body: mutationResponse{
					Error:        "record version mismatch",
					ServerRecord: conflict.ServerRecord,
				},
			}, nil
		}
		return nil, err
	}

	version, _ := toInt64(stored["record_version"])
	return &mutationOutput{
		Status: http.StatusOK,
		Body: mutationResponse{
			Status:        "Ok",
			RecordVersion: version,
		},
	}, nil
}
