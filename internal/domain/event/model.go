package event

import (
	"errors"
	"strings"
	"time"
)

// Event status constants.
const (
	StatusPlanned   = "planned"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ValidStatuses contains all valid event status values.
var ValidStatuses = []string{StatusPlanned, StatusOngoing, StatusCompleted, StatusCancelled}

// Domain errors
var (
	ErrNotFound      = errors.New("event not found")
	ErrInvalidStatus = errors.New("status must be one of: planned, ongoing, completed, cancelled")
)

// Event is one calendar entry (trip, celebration, parent meeting).
type Event struct {
	ID          string
	Name        string
	Description string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM, optional
	Location    string
	Status      string
	CreatedBy   string // user id, optional
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks if the Event has valid data.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("event name cannot be empty")
	}
	if e.Date == "" {
		return errors.New("event date must be set")
	}
	if !isValidStatus(e.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// Update carries a typed partial update for an event.
type Update struct {
	Name        *string
	Description *string
	Date        *string
	Time        *string
	Location    *string
	Status      *string
}

// Apply copies the non-nil fields of the update onto the event.
func (e *Event) Apply(u Update) {
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.Time != nil {
		e.Time = *u.Time
	}
	if u.Location != nil {
		e.Location = *u.Location
	}
	if u.Status != nil {
		e.Status = *u.Status
	}
}

func isValidStatus(status string) bool {
	for _, v := range ValidStatuses {
		if v == status {
			return true
		}
	}
	return false
}
