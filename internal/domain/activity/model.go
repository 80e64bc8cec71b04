package activity

import (
	"errors"
	"time"
)

// Entry is one append-only audit row. Entries are never updated or deleted
// and are never read back into business logic.
type Entry struct {
	ID        string
	UserID    string // empty for system actions
	Action    string
	Details   string // JSON-serialized detail, optional
	CreatedAt time.Time
}

// Validate checks if the Entry has valid data.
func (e *Entry) Validate() error {
	if e.Action == "" {
		return errors.New("activity entry must name an action")
	}
	return nil
}
