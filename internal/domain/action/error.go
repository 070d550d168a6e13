package action

import "errors"

var (
	ErrNotFound        = errors.New("queued action not found")
	ErrUnknownType     = errors.New("unknown action type")
	ErrUnknownPriority = errors.New("unknown priority")
	ErrInvalidPayload  = errors.New("invalid payload")
)
