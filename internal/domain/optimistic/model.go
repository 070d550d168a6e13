package optimistic

import "time"

// Operation is the kind of local write an optimistic update tracks.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Update is a locally-applied, server-unconfirmed change. The local write
// itself is performed by the caller; the ledger only tracks that it is
// visible but unconfirmed.
type Update struct {
	ID         string    `json:"id"`
	RecordType string    `json:"record_type"`
	RecordID   string    `json:"record_id"`
	Operation  Operation `json:"operation"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats summarizes the ledger for display.
type Stats struct {
	Pending int `json:"pending"`
}
