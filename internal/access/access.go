// Package access decides whether a caller may start a reconstruction job.
package access

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"eraser/internal/config"
	"eraser/internal/services"
)

// Credentials identify the caller of a job.
type Credentials struct {
	User     string
	Password string
}

// Authorizer must approve a caller before a job starts.
type Authorizer interface {
	Authorize(ctx context.Context, creds Credentials) error
}

// UserLookup resolves stored password hashes.
type UserLookup interface {
	PasswordHash(ctx context.Context, name string) (string, bool, error)
}

// AllowAll approves every caller; used when access control is disabled.
type AllowAll struct{}

// Authorize always succeeds.
func (AllowAll) Authorize(context.Context, Credentials) error { return nil }

// PasswordAuthorizer checks credentials against bcrypt hashes.
type PasswordAuthorizer struct {
	users UserLookup
}

// NewPasswordAuthorizer returns an authorizer backed by users.
func NewPasswordAuthorizer(users UserLookup) *PasswordAuthorizer {
	return &PasswordAuthorizer{users: users}
}

// Authorize verifies the password for creds.User. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (a *PasswordAuthorizer) Authorize(ctx context.Context, creds Credentials) error {
	name := strings.TrimSpace(creds.User)
	if name == "" {
		return denied("user is required")
	}
	if a == nil || a.users == nil {
		return services.Wrap(services.ErrConfiguration, "validating", "authorize", "no user store configured", nil)
	}
	hash, ok, err := a.users.PasswordHash(ctx, name)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "validating", "authorize", "lookup user", err)
	}
	if !ok {
		return denied("invalid user or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return denied("invalid user or password")
		}
		return services.Wrap(services.ErrConfiguration, "validating", "authorize", "stored hash is unusable", err)
	}
	return nil
}

// New returns the authorizer selected by cfg.Access.
func New(cfg *config.Config, users UserLookup) Authorizer {
	if cfg == nil || !cfg.Access.Enabled {
		return AllowAll{}
	}
	return NewPasswordAuthorizer(users)
}

// HashPassword returns a bcrypt hash suitable for PutUser.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", services.Wrap(services.ErrValidation, "access", "hash password", "password must not be empty", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "access", "hash password", "", err)
	}
	return string(hash), nil
}

func denied(msg string) error {
	return services.Wrap(services.ErrUnauthorized, "validating", "authorize", msg, nil)
}
