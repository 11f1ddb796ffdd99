// Package users declares the credential-store contract consumed by the
// session service, together with its storage backends.
package users

import (
	"context"

	"github.com/avolkov/accountd/internal/server/models"
)

// Repository persists user accounts. Implementations must enforce email
// uniqueness and sparse uniqueness of referral codes, returning
// common.ErrorConflict on collisions.
//
// The refresh-token methods update that single field only; they must never
// touch the password column, and the password methods must never touch the
// stored refresh token (except ClearRefreshToken semantics noted below).
type Repository interface {
	// Create inserts a new account and returns it with its assigned ID.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByEmail looks an account up by its normalized email.
	// Returns common.ErrorNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByID looks an account up by ID.
	// Returns common.ErrorNotFound when absent.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// SetRefreshToken unconditionally stores token as the account's current
	// refresh token; nil clears it. Clearing an absent token is not an
	// error, which keeps logout idempotent.
	SetRefreshToken(ctx context.Context, id string, token *string) error

	// RotateRefreshToken atomically replaces oldToken with newToken, as a
	// single conditional update. When the stored value no longer equals
	// oldToken (already rotated, or cleared by logout) it returns
	// common.ErrRefreshTokenReused and stores nothing.
	RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) error

	// UpdatePassword stores a new password hash for the account.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// UpdateProfile updates name and/or email; empty values leave the
	// current one unchanged. Returns common.ErrorConflict when the new
	// email is taken.
	UpdateProfile(ctx context.Context, id, name, email string) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
