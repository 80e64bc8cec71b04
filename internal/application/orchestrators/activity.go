package orchestrators

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	activitystore "nursery/internal/adapters/storage/activity"
	"nursery/internal/domain/account"
	"nursery/internal/domain/activity"
)

// ActivityStore defines the interface for activity log persistence.
type ActivityStore interface {
	Append(ctx context.Context, e activity.Entry) error
	List(ctx context.Context, filter activitystore.ListFilter) ([]activity.Entry, error)
}

// recordActivity appends an audit entry. Failures are logged and swallowed:
// the log is an observer of mutations, never a reason to fail them.
func recordActivity(ctx context.Context, store ActivityStore, principal account.Principal, action string, details any) {
	if store == nil {
		return
	}
	var detailJSON string
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			detailJSON = string(b)
		}
	}
	e := activity.Entry{
		ID:        uuid.New().String(),
		UserID:    principal.UserID,
		Action:    action,
		Details:   detailJSON,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Append(ctx, e); err != nil {
		slog.Warn("activity_event", "event", "append_failed", "action", action, "error", err)
	}
}

// ListActivityInput carries input for the activity listing.
type ListActivityInput struct {
	UserID string
	Action string
	Limit  int
	Offset int
}

// ListActivityResult carries the activity page.
type ListActivityResult struct {
	Entries []activity.Entry
}

// ListActivityDeps holds dependencies for ListActivity.
type ListActivityDeps struct {
	ActivityStore ActivityStore
}

// ExecuteListActivity returns a page of the activity log, newest first.
// POST: Returns up to Limit entries
func ExecuteListActivity(ctx context.Context, input ListActivityInput, deps ListActivityDeps) (ListActivityResult, error) {
	if input.Limit <= 0 {
		input.Limit = 50
	}
	entries, err := deps.ActivityStore.List(ctx, activitystore.ListFilter{
		UserID: input.UserID,
		Action: input.Action,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return ListActivityResult{}, err
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	return ListActivityResult{Entries: entries}, nil
}
