package agent

import (
	"context"

	"careline/internal/domain/action"
)

// SubmitStatus classifies the outcome of one submission attempt.
type SubmitStatus int

const (
	// SubmitOK means the backend accepted the mutation.
	SubmitOK SubmitStatus = iota
	// SubmitConflict means the backend rejected the mutation on a version
	// precondition and returned its current record state.
	SubmitConflict
	// SubmitRetryable means the backend was unreachable or failed
	// transiently; the action stays queued with an incremented retry count.
	SubmitRetryable
	// SubmitRejected means the backend rejected the mutation outright
	// (non-conflict); the optimistic local write must be rolled back.
	SubmitRejected
)

// SubmitResult carries the outcome of a submission attempt.
type SubmitResult struct {
	Status SubmitStatus
	// ServerRecord is the backend's current record state, set on conflict.
	ServerRecord map[string]any
	// Err describes the failure for retryable and rejected outcomes.
	Err error
}

// Submitter is the boundary to the backend API client. The concrete
// transport, paths and payload shapes are owned by the implementation, not
// by the sync core.
type Submitter interface {
	Submit(ctx context.Context, a *action.QueuedAction) *SubmitResult
}
