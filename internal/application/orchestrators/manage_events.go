package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	eventstore "nursery/internal/adapters/storage/event"
	"nursery/internal/domain/account"
	domain "nursery/internal/domain/event"
)

// EventStore defines the event persistence interface.
type EventStore interface {
	GetByID(ctx context.Context, id string) (domain.Event, error)
	Save(ctx context.Context, value domain.Event) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter eventstore.ListFilter) ([]domain.Event, error)
}

// CreateEventInput carries input for event creation.
type CreateEventInput struct {
	Name        string
	Description string
	Date        string
	Time        string
	Location    string
}

// EventDeps holds dependencies for event management.
type EventDeps struct {
	EventStore    EventStore
	ActivityStore ActivityStore
}

// ExecuteCreateEvent creates a calendar event in the planned state.
func ExecuteCreateEvent(ctx context.Context, principal account.Principal, input CreateEventInput, deps EventDeps) (domain.Event, error) {
	now := time.Now().UTC()
	e := domain.Event{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		Date:        input.Date,
		Time:        input.Time,
		Location:    input.Location,
		Status:      domain.StatusPlanned,
		CreatedBy:   principal.UserID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Validate(); err != nil {
		return domain.Event{}, err
	}
	if err := deps.EventStore.Save(ctx, e); err != nil {
		return domain.Event{}, err
	}
	slog.Info("event_event", "event", "event_created", "event_id", e.ID, "name", e.Name, "date", e.Date)
	recordActivity(ctx, deps.ActivityStore, principal, "event_created", map[string]string{"event_id": e.ID, "name": e.Name})
	return e, nil
}

// ExecuteUpdateEvent applies a partial update, including status moves.
func ExecuteUpdateEvent(ctx context.Context, principal account.Principal, id string, update domain.Update, deps EventDeps) (domain.Event, error) {
	e, err := deps.EventStore.GetByID(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	e.Apply(update)
	e.UpdatedAt = time.Now().UTC()
	if err := e.Validate(); err != nil {
		return domain.Event{}, err
	}
	if err := deps.EventStore.Save(ctx, e); err != nil {
		return domain.Event{}, err
	}
	slog.Info("event_event", "event", "event_updated", "event_id", e.ID, "status", e.Status)
	recordActivity(ctx, deps.ActivityStore, principal, "event_updated", map[string]string{"event_id": e.ID})
	return e, nil
}

// ExecuteDeleteEvent soft-deletes an event.
func ExecuteDeleteEvent(ctx context.Context, principal account.Principal, id string, deps EventDeps) error {
	if err := deps.EventStore.SoftDelete(ctx, id); err != nil {
		return err
	}
	slog.Info("event_event", "event", "event_deleted", "event_id", id)
	recordActivity(ctx, deps.ActivityStore, principal, "event_deleted", map[string]string{"event_id": id})
	return nil
}

// ExecuteListEvents returns events matching the filter.
func ExecuteListEvents(ctx context.Context, filter eventstore.ListFilter, deps EventDeps) ([]domain.Event, error) {
	list, err := deps.EventStore.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Event{}
	}
	return list, nil
}
