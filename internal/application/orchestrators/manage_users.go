package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domain "nursery/internal/domain/account"
)

// CreateUserInput carries input for account creation.
type CreateUserInput struct {
	Username string
	Password string
	Role     string
}

// ExecuteCreateUser creates a new account. Only admins may do this.
// POST: the stored user carries a bcrypt hash, never the plaintext
func ExecuteCreateUser(ctx context.Context, principal domain.Principal, input CreateUserInput, deps LoginDeps) (domain.User, error) {
	if !principal.IsAdmin() {
		return domain.User{}, domain.ErrForbidden
	}

	u := domain.User{
		ID:        uuid.New().String(),
		Username:  input.Username,
		Role:      input.Role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.Validate(); err != nil {
		return domain.User{}, err
	}
	if err := u.SetPassword(input.Password); err != nil {
		return domain.User{}, err
	}
	if err := deps.AccountStore.Save(ctx, u); err != nil {
		return domain.User{}, err
	}

	slog.Info("auth_event", "event", "user_created", "user_id", u.ID, "username", u.Username, "role", u.Role)
	recordActivity(ctx, deps.ActivityStore, principal, "user_created", map[string]string{"user_id": u.ID, "username": u.Username, "role": u.Role})
	u.PasswordHash = ""
	return u, nil
}

// ChangePasswordInput carries input for a password change.
type ChangePasswordInput struct {
	UserID      string
	OldPassword string
	NewPassword string
}

// ExecuteChangePassword sets a new password. Users change their own password
// by proving the old one; admins may reset anyone's without it.
func ExecuteChangePassword(ctx context.Context, principal domain.Principal, input ChangePasswordInput, deps LoginDeps) error {
	self := principal.UserID == input.UserID
	if !self && !principal.IsAdmin() {
		return domain.ErrForbidden
	}

	u, err := deps.AccountStore.GetByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if self && !principal.IsAdmin() {
		if err := u.CheckPassword(input.OldPassword); err != nil {
			return err
		}
	}
	if err := u.SetPassword(input.NewPassword); err != nil {
		return err
	}
	if err := deps.AccountStore.Save(ctx, u); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "user_id", u.ID)
	recordActivity(ctx, deps.ActivityStore, principal, "password_changed", map[string]string{"user_id": u.ID})
	return nil
}

// ExecuteDeactivateUser soft-deletes an account so it can no longer log in.
// Admins cannot deactivate themselves; that would risk locking everyone out.
func ExecuteDeactivateUser(ctx context.Context, principal domain.Principal, userID string, deps LoginDeps) error {
	if !principal.IsAdmin() {
		return domain.ErrForbidden
	}
	if principal.UserID == userID {
		return domain.ErrForbidden
	}
	if err := deps.AccountStore.SoftDelete(ctx, userID); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "user_deactivated", "user_id", userID)
	recordActivity(ctx, deps.ActivityStore, principal, "user_deactivated", map[string]string{"user_id": userID})
	return nil
}

// ExecuteListUsers returns accounts with password hashes stripped.
func ExecuteListUsers(ctx context.Context, principal domain.Principal, includeInactive bool, deps LoginDeps) ([]domain.User, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	users, err := deps.AccountStore.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}
