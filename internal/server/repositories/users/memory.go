package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/accountd/internal/common"
	"github.com/avolkov/accountd/internal/server/models"
)

// MemoryRepository is an in-memory Repository used in tests and local
// experiments. It enforces the same uniqueness and compare-and-swap
// semantics as the real backends.
type MemoryRepository struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*models.User)}
}

func (r *MemoryRepository) clone(u *models.User) *models.User {
	c := *u
	if u.RefreshToken != nil {
		tok := *u.RefreshToken
		c.RefreshToken = &tok
	}
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return nil, common.ErrorConflict
		}
		if user.ReferralCode != "" && existing.ReferralCode == user.ReferralCode {
			return nil, common.ErrorConflict
		}
	}

	created := r.clone(user)
	created.ID = uuid.NewString()
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now
	r.byID[created.ID] = created

	return r.clone(created), nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email {
			return r.clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.clone(u), nil
}

func (r *MemoryRepository) SetRefreshToken(_ context.Context, id string, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil // clearing an unknown account stays idempotent
	}
	if token == nil {
		u.RefreshToken = nil
	} else {
		tok := *token
		u.RefreshToken = &tok
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) RotateRefreshToken(_ context.Context, id, oldToken, newToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != oldToken {
		return common.ErrRefreshTokenReused
	}
	tok := newToken
	u.RefreshToken = &tok
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, id, name, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if email != "" && email != u.Email {
		for _, other := range r.byID {
			if other.ID != id && other.Email == email {
				return common.ErrorConflict
			}
		}
		u.Email = email
	}
	if name != "" {
		u.Name = name
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }

var _ Repository = (*MemoryRepository)(nil)
