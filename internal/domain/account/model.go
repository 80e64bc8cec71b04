package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role constants
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleAdmin, RoleStaff}

// Domain errors
var (
	ErrEmptyUsername     = errors.New("username cannot be empty")
	ErrInvalidRole       = errors.New("role must be one of: admin, staff")
	ErrEmptyPassword     = errors.New("password cannot be empty")
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
	ErrWrongPassword     = errors.New("incorrect password")
	ErrUsernameTaken     = errors.New("username is already in use")
	ErrNotFound          = errors.New("user not found")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrForbidden         = errors.New("operation requires the admin role")
)

// User holds state for one application account. Soft delete is via Active.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
}

// Validate checks if the User has valid data.
// PRE: User struct is populated
// POST: Returns nil if valid, error otherwise
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if !isValidRole(u.Role) {
		return ErrInvalidRole
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt with cost 12.
// PRE: plaintext is non-empty and >= 8 characters
// POST: PasswordHash is set to bcrypt hash
func (u *User) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < 8 {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares a plaintext password against the stored hash.
// POST: Returns nil on match, ErrWrongPassword otherwise
func (u *User) CheckPassword(plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext))
	if err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsAdmin returns true for administrator accounts.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func isValidRole(role string) bool {
	for _, v := range ValidRoles {
		if v == role {
			return true
		}
	}
	return false
}

// Principal is the session identity passed explicitly into every mutating
// operation. There is no process-wide current user.
type Principal struct {
	UserID   string
	Username string
	Role     string
}

// IsAdmin returns true when the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsZero reports whether the principal is unauthenticated.
func (p Principal) IsZero() bool {
	return p.UserID == ""
}
