package optimistic

import "errors"

var (
	ErrNotFound         = errors.New("optimistic update not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrRollbackFailed   = errors.New("rollback of local write failed")
)
