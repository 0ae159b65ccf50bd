package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash *string    `json:"-"`
	FullName     string     `json:"full_name"`
	AvatarURL    *string    `json:"avatar_url"`
	IsActive     bool       `json:"is_active"`
	AuthProvider string     `json:"auth_provider"` // "password" | "google"
	GoogleID     *string    `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// Identity is what an external identity provider vouches for.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72,containsany=0123456789"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ExchangeRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
