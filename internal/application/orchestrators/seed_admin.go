package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domain "nursery/internal/domain/account"
)

// SeedAdminInput carries the bootstrap admin credentials.
type SeedAdminInput struct {
	Username string
	Password string
}

// ExecuteSeedAdmin creates the bootstrap admin account if it doesn't already
// exist. It is idempotent and never resets the password of an existing
// account, so a rotated admin password survives restarts.
// PRE: database is migrated
// POST: an active admin account with the given username exists
func ExecuteSeedAdmin(ctx context.Context, input SeedAdminInput, store AccountStore) error {
	_, err := store.GetByUsername(ctx, input.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("seed admin: lookup: %w", err)
	}

	u := domain.User{
		ID:        uuid.New().String(),
		Username:  input.Username,
		Role:      domain.RoleAdmin,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.SetPassword(input.Password); err != nil {
		return fmt.Errorf("seed admin: set password: %w", err)
	}
	if err := store.Save(ctx, u); err != nil {
		return fmt.Errorf("seed admin: save: %w", err)
	}

	slog.Info("seed_event", "event", "admin_created", "username", u.Username)
	return nil
}
