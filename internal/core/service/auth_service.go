package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/task-manager/internal/core/domain"
	"github.com/taskhub/task-manager/internal/core/ports"
)

const (
	recoveryTokenTTL = time.Hour
	userCacheTTL     = 15 * time.Minute
)

// AuthService implements registration, login, sign-out, profile access, and
// the password recovery flow.
type AuthService struct {
	users     ports.UserRepository
	tokens    ports.TokenStore
	mailer    ports.Mailer
	publisher ports.ActivityPublisher
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	tokens ports.TokenStore,
	mailer ports.Mailer,
	publisher ports.ActivityPublisher,
	jwtSecret string,
	tokenTTL time.Duration,
	logger zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		publisher: publisher,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// Register creates a profile for a new principal. The role string is
// normalized at the boundary: anything unrecognized becomes guest.
func (s *AuthService) Register(ctx context.Context, email, password, name, role string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         domain.NormalizeRole(role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("user registered")
	if s.publisher != nil {
		s.publisher.Publish(domain.ActivityEvent{
			Type:       domain.ActivityUserJoined,
			ActorID:    created.ID,
			ActorEmail: created.Email,
			ActorName:  created.Name,
			Timestamp:  now,
		})
	}
	return created, nil
}

// Login verifies credentials and returns a signed token plus the resolved
// profile. The principal snapshot is cached so subsequent profile lookups do
// not hit the database.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	if err := s.tokens.CacheUser(ctx, user, userCacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to cache principal")
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	return token, user, nil
}

// Logout revokes the token id until the token would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	return s.tokens.RevokeToken(ctx, tokenID, s.tokenTTL)
}

// GetUser resolves the current principal's profile: cache first, then the
// repository. A missing profile row falls back to the default profile
// rather than failing.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if cached, ok, err := s.tokens.CachedUser(ctx, userID); err == nil && ok {
		return cached, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Warn().Str("user_id", userID).Msg("profile row missing, using default profile")
			fallback := domain.DefaultProfile(userID, "")
			return &fallback, nil
		}
		return nil, err
	}

	if err := s.tokens.CacheUser(ctx, user, userCacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to cache principal")
	}
	return user, nil
}

// UpdateUser applies a partial profile patch to the current principal.
func (s *AuthService) UpdateUser(ctx context.Context, userID string, patch ports.UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if err := s.tokens.CacheUser(ctx, user, userCacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to refresh cached principal")
	}
	return user, nil
}

// RequestPasswordReset issues a recovery token and mails a reset link. The
// result is indistinguishable for known and unknown emails.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().Str("email", email).Msg("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := recoveryToken()
	if err != nil {
		return err
	}
	if err := s.tokens.PutRecoveryToken(ctx, token, user.ID, recoveryTokenTTL); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s?token=%s", redirectTo, url.QueryEscape(token))
	if err := s.mailer.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to send reset email")
		return err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("password reset link sent")
	return nil
}

// ConfirmPasswordReset consumes the recovery token and sets the new
// password. An expired or already-used token reports ErrRecoveryInvalid.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return domain.ErrRecoveryInvalid
	}

	userID, err := s.tokens.TakeRecoveryToken(ctx, token)
	if err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("password reset completed")
	return nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  string(user.Role),
		"jti":   uuid.NewString(),
		"exp":   time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

// recoveryToken returns 32 hex chars of cryptographic randomness.
func recoveryToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
