package conflict

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownStrategy = errors.New("unknown resolution strategy")
	ErrNoPolicy        = errors.New("no automatic policy applies")
)

// ValidationError rejects a ManualResolution before any write is
// attempted; the caller must re-prompt the user.
type ValidationError struct {
	Message       string
	MissingFields []string
}

func (e *ValidationError) Error() string {
	if len(e.MissingFields) > 0 {
		return fmt.Sprintf("%s: missing resolutions for %s",
			e.Message, strings.Join(e.MissingFields, ", "))
	}
	return e.Message
}
