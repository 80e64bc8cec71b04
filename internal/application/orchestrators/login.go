package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	domain "nursery/internal/domain/account"
)

// AccountStore defines the user account persistence interface.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	Save(ctx context.Context, value domain.User) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, includeInactive bool) ([]domain.User, error)
}

// LoginInput carries login credentials.
type LoginInput struct {
	Username string
	Password string
}

// LoginDeps holds dependencies for authentication.
type LoginDeps struct {
	AccountStore  AccountStore
	ActivityStore ActivityStore
}

// ExecuteLogin verifies credentials and returns the authenticated principal.
// A missing user, a wrong password and a deactivated account all surface the
// same ErrInvalidCredential so the response does not leak which one it was.
// POST: on success the returned principal carries the user's id and role
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (domain.Principal, error) {
	u, err := deps.AccountStore.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("auth_event", "event", "login_failed", "username", input.Username)
			return domain.Principal{}, domain.ErrInvalidCredential
		}
		return domain.Principal{}, err
	}
	if !u.Active {
		slog.Info("auth_event", "event", "login_failed", "username", input.Username)
		return domain.Principal{}, domain.ErrInvalidCredential
	}
	if err := u.CheckPassword(input.Password); err != nil {
		slog.Info("auth_event", "event", "login_failed", "username", input.Username)
		return domain.Principal{}, domain.ErrInvalidCredential
	}

	principal := domain.Principal{UserID: u.ID, Username: u.Username, Role: u.Role}
	slog.Info("auth_event", "event", "login", "user_id", u.ID, "username", u.Username)
	recordActivity(ctx, deps.ActivityStore, principal, "login", nil)
	return principal, nil
}
