package domain

import (
	"errors"
	"time"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrTokenRevoked = errors.New("token revoked")
var ErrRecoveryInvalid = errors.New("recovery link is invalid or has expired")

// DefaultProfileName is used when a principal has no profile row.
const DefaultProfileName = "Demo User"

// User models an authenticated principal.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultProfile is the fallback identity applied when a principal has no
// profile row. Profile absence is not fatal and must never block navigation.
func DefaultProfile(id, email string) User {
	return User{
		ID:    id,
		Email: email,
		Name:  DefaultProfileName,
		Role:  RoleUser,
	}
}
