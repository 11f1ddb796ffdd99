// Package services contains server-side business logic. This file implements
// UserService, which owns the session lifecycle: registration, login,
// refresh-token rotation, and logout. At most one refresh token is valid per
// account at any time.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avolkov/accountd/internal/common"
	"github.com/avolkov/accountd/internal/logging"
	"github.com/avolkov/accountd/internal/randx"
	"github.com/avolkov/accountd/internal/server/auth"
	"github.com/avolkov/accountd/internal/server/config"
	"github.com/avolkov/accountd/internal/server/models"
	"github.com/avolkov/accountd/internal/server/password"
	"github.com/avolkov/accountd/internal/server/repositories/users"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	IsAdmin      bool
	ReferralCode string
	ReferredBy   string
}

// UserService provides authentication-related operations on top of a
// credential store. It is transport-agnostic; the HTTP layer adapts requests
// into plain method calls.
type UserService struct {
	store         users.Repository
	log           logging.Logger
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewUserService constructs a UserService from the credential store and
// server config.
func NewUserService(store users.Repository, log logging.Logger, cfg *config.Config) *UserService {
	return &UserService{
		store:         store,
		log:           log.With("module", "user_service"),
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenValidityDuration,
		refreshTTL:    cfg.RefreshTokenValidityDuration,
	}
}

// NormalizeEmail lowercases and trims an email address. Uniqueness checks and
// lookups always run on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates the input, hashes the password, and persists a new
// account. The returned view never contains the password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", in.Name},
		{"email", in.Email},
		{"password", in.Password},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required fields: %s", common.ErrorValidation, strings.Join(missing, ", "))
	}

	email := NormalizeEmail(in.Email)

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: user with same email already exists", common.ErrorConflict)
	} else if !errors.Is(err, common.ErrorNotFound) {
		s.log.Error(ctx, "register lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		s.log.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	referralCode := strings.TrimSpace(in.ReferralCode)
	if referralCode == "" {
		// 16 hex chars keeps the unique-index collision odds negligible
		referralCode, err = randx.HexString(8)
		if err != nil {
			s.log.Error(ctx, "generating referral code failed", "error", err)
			return nil, common.ErrorInternal
		}
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin,
		ReferralCode: referralCode,
		ReferredBy:   strings.TrimSpace(in.ReferredBy),
	}

	created, err := s.store.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			// lost the race after the optimistic pre-check
			return nil, fmt.Errorf("%w: user with same email already exists", common.ErrorConflict)
		}
		s.log.Error(ctx, "creating user failed", "error", err)
		return nil, common.ErrorInternal
	}

	return created.Public(), nil
}

// Login verifies credentials and, on success, mints a fresh token pair and
// persists the new refresh token as the account's single valid one.
func (s *UserService) Login(ctx context.Context, email, pass string) (*models.PublicUser, *TokenPair, error) {
	user, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		s.log.Error(ctx, "login lookup failed", "error", err)
		return nil, nil, common.ErrorInternal
	}

	ok, err := password.Verify(pass, user.PasswordHash)
	if err != nil {
		s.log.Error(ctx, "stored password hash is malformed", "user_id", user.ID, "error", err)
		return nil, nil, common.ErrorInternal
	}
	if !ok {
		return nil, nil, common.ErrorInvalidCredentials
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user.Public(), pair, nil
}

// Refresh exchanges a valid, current refresh token for a new pair. The
// presented token must both verify cryptographically and equal the stored
// value; rotation then replaces it atomically, so a replayed token loses.
func (s *UserService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, fmt.Errorf("%w: no refresh token presented", common.ErrorUnauthorized)
	}

	claims, err := auth.ParseToken(presented, s.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", common.ErrorUnauthorized)
	}

	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", common.ErrorUnauthorized)
		}
		s.log.Error(ctx, "refresh lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if user.RefreshToken == nil {
		return nil, fmt.Errorf("%w: token expired or already used", common.ErrorUnauthorized)
	}

	access, err := auth.GenerateToken(user, s.accessSecret, s.accessTTL)
	if err != nil {
		s.log.Error(ctx, "signing access token failed", "error", err)
		return nil, fmt.Errorf("token generation failed: %w", common.ErrorInternal)
	}
	refresh, err := auth.GenerateToken(user, s.refreshSecret, s.refreshTTL)
	if err != nil {
		s.log.Error(ctx, "signing refresh token failed", "error", err)
		return nil, fmt.Errorf("token generation failed: %w", common.ErrorInternal)
	}

	if err := s.store.RotateRefreshToken(ctx, user.ID, presented, refresh); err != nil {
		if errors.Is(err, common.ErrRefreshTokenReused) {
			return nil, fmt.Errorf("%w: token expired or already used", common.ErrorUnauthorized)
		}
		s.log.Error(ctx, "persisting rotated refresh token failed", "error", err)
		return nil, fmt.Errorf("token generation failed: %w", common.ErrorInternal)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout clears the stored refresh token. Calling it for an already
// logged-out account succeeds.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.store.SetRefreshToken(ctx, userID, nil); err != nil {
		s.log.Error(ctx, "clearing refresh token failed", "error", err)
		return common.ErrorInternal
	}
	return nil
}

// Authenticate verifies an access token and returns its claims. Handlers
// must not read identity fields from a token that did not pass here.
func (s *UserService) Authenticate(tokenString string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(tokenString, s.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid access token", common.ErrorUnauthorized)
	}
	return claims, nil
}

// CurrentUser returns the sanitized account for an authenticated user.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	return user.Public(), nil
}

// ChangePassword verifies the current password and stores a hash of the new
// one. The stored refresh token is cleared so existing sessions must log in
// again.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if strings.TrimSpace(next) == "" {
		return fmt.Errorf("%w: missing required fields: newPassword", common.ErrorValidation)
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return common.ErrorInternal
	}

	ok, err := password.Verify(current, user.PasswordHash)
	if err != nil {
		s.log.Error(ctx, "stored password hash is malformed", "user_id", user.ID, "error", err)
		return common.ErrorInternal
	}
	if !ok {
		return common.ErrorInvalidCredentials
	}

	hash, err := password.Hash(next)
	if err != nil {
		s.log.Error(ctx, "password hashing failed", "error", err)
		return common.ErrorInternal
	}

	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		s.log.Error(ctx, "storing new password failed", "error", err)
		return common.ErrorInternal
	}

	// other devices holding the old refresh token must re-authenticate
	if err := s.store.SetRefreshToken(ctx, userID, nil); err != nil {
		s.log.Error(ctx, "clearing refresh token failed", "error", err)
		return common.ErrorInternal
	}

	return nil
}

// UpdateAccount updates name and/or email and returns the fresh sanitized
// view. Email goes through the same normalization as registration.
func (s *UserService) UpdateAccount(ctx context.Context, userID, name, email string) (*models.PublicUser, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" && email == "" {
		return nil, fmt.Errorf("%w: nothing to update", common.ErrorValidation)
	}

	if err := s.store.UpdateProfile(ctx, userID, name, email); err != nil {
		switch {
		case errors.Is(err, common.ErrorConflict):
			return nil, fmt.Errorf("%w: email already in use", common.ErrorConflict)
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrorNotFound
		default:
			s.log.Error(ctx, "updating account failed", "error", err)
			return nil, common.ErrorInternal
		}
	}

	return s.CurrentUser(ctx, userID)
}

// generateTokenPair mints both tokens and persists the refresh token as the
// account's current one. Callers cannot tell which step failed; everything
// collapses into a single opaque internal error.
func (s *UserService) generateTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := auth.GenerateToken(user, s.accessSecret, s.accessTTL)
	if err != nil {
		s.log.Error(ctx, "signing access token failed", "error", err)
		return nil, fmt.Errorf("token generation failed: %w", common.ErrorInternal)
	}

	refresh, err := auth.GenerateToken(user, s.refreshSecret, s.refreshTTL)
	if err != nil {
		s.log.Error(ctx, "signing refresh token failed", "error", err)
		return nil, fmt.Errorf("token generation failed: %w", common.ErrorInternal)
	}

	if err := s.store.SetRefreshToken(ctx, user.ID, &refresh); err != nil {
		s.log.Error(ctx, "persisting refresh token failed", "error", err)
		return nil, fmt.Errorf("token generation failed: %w", common.ErrorInternal)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
