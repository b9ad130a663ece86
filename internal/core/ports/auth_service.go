package ports

import (
	"context"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// UpdateProfileInput is a partial patch for the current principal.
type UpdateProfileInput struct {
	Name     *string
	Password *string
}

// AuthService implements sign-up, sign-in, sign-out, profile access, and the
// password recovery flow.
type AuthService interface {
	Register(ctx context.Context, email, password, name, role string) (*domain.User, error)
	// Login verifies credentials and returns a signed token plus the
	// resolved profile. A missing profile row is defaulted, not fatal.
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	// Logout revokes the token's id until its natural expiry.
	Logout(ctx context.Context, tokenID string) error
	// GetUser resolves the current principal's profile, consulting the
	// cached identity first.
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateUser(ctx context.Context, userID string, patch UpdateProfileInput) (*domain.User, error)
	// RequestPasswordReset issues a recovery token and mails a reset link.
	// It reports success even for unknown emails.
	RequestPasswordReset(ctx context.Context, email, redirectTo string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}
