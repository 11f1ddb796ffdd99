package models

import "time"

// User is the stored account record. PasswordHash holds a bcrypt hash, never
// a plaintext password. RefreshToken is the single currently-valid refresh
// token for the account; nil means the user is logged out.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	ReferralCode string
	ReferredBy   string
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the sanitized account view returned to clients. It carries
// neither the password hash nor the stored refresh token.
type PublicUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	IsAdmin      bool      `json:"isAdmin"`
	ReferralCode string    `json:"referralCode,omitempty"`
	ReferredBy   string    `json:"referredBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public strips credentials from the record.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		IsAdmin:      u.IsAdmin,
		ReferralCode: u.ReferralCode,
		ReferredBy:   u.ReferredBy,
		CreatedAt:    u.CreatedAt,
	}
}
