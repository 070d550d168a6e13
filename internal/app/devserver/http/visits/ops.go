package visits

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) checkInOp() huma.Operation {
	return huma.Operation{
		OperationID: "visit-check-in",
		Method:      http.MethodPost,
		Path:        "/api/v1/visits/{visitID}/check-in",
		Summary:     "Record a visit check-in",
		Description: "Applies an EVV check-in event against the visit record.",
		Tags:        []string{"visits"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) checkOutOp() huma.Operation {
	return huma.Operation{
		OperationID: "visit-check-out",
		Method:      http.MethodPost,
		Path:        "/api/v1/visits/{visitID}/check-out",
		Summary:     "Record a visit check-out",
		Tags:        []string{"visits"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) taskCompleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "task-complete",
		Method:      http.MethodPost,
		Path:        "/api/v1/visits/{visitID}/tasks/{taskID}/complete",
		Summary:     "Mark a care-plan task completed",
		Tags:        []string{"visits", "tasks"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) noteUpsertOp() huma.Operation {
	return huma.Operation{
		OperationID: "note-upsert",
		Method:      http.MethodPut,
		Path:        "/api/v1/visits/{visitID}/notes/{noteID}",
		Summary:     "Create or update a care note",
		Description: "Applies a care note against the visit. A stale record_version returns 409 with the server's current record.",
		Tags:        []string{"visits", "notes"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) seedOp() huma.Operation {
	return huma.Operation{
		OperationID: "dev-seed",
		Method:      http.MethodPost,
		Path:        "/api/v1/dev/seed",
		Summary:     "Seed server-side record state",
		Description: "Installs record state directly, bypassing version checks. Seeding over a queued client change is the quickest way to provoke a conflict.",
		Tags:        []string{"dev"},
		Middlewares: h.middleware,
	}
}
