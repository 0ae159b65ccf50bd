package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"flashdeck-backend/internal/logger"
	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/repository"
)

const (
	bcryptCost      = 12
	refreshTokenTTL = 7 * 24 * time.Hour
	refreshPrefix   = "refresh:"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	LinkGoogle(ctx context.Context, userID uuid.UUID, googleID string) error
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
}

type AuthService struct {
	users    UserStore
	kv       KV
	jwt      *middleware.JWTAuth
	verifier IdentityVerifier
}

// NewAuthService wires the session layer. verifier may be nil when no
// identity provider is configured; exchange is then rejected.
func NewAuthService(users UserStore, kv KV, jwt *middleware.JWTAuth, verifier IdentityVerifier) *AuthService {
	return &AuthService{
		users:    users,
		kv:       kv,
		jwt:      jwt,
		verifier: verifier,
	}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, *models.AuthTokens, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validateStruct(req); err != nil {
		return nil, nil, err
	}

	_, err := s.users.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, nil, &ConflictError{Message: "Email already in use"}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashStr := string(hash)

	user := &models.User{
		Email:        req.Email,
		PasswordHash: &hashStr,
		FullName:     req.FullName,
		AuthProvider: "password",
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, nil, &ConflictError{Message: "Email already in use"}
		}
		return nil, nil, err
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Invalid email or password"}
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, &UnauthorizedError{Message: "Account is deactivated"}
	}

	// Google-only accounts have no password.
	if user.PasswordHash == nil {
		return nil, &UnauthorizedError{Message: "Invalid email or password"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Message: "Invalid email or password"}
	}

	s.touchLogin(ctx, user.ID)
	return s.issueTokens(ctx, user)
}

// Exchange verifies an identity token, finds or creates the matching user
// and starts a session for them.
func (s *AuthService) Exchange(ctx context.Context, req models.ExchangeRequest) (*models.AuthTokens, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if s.verifier == nil {
		return nil, &ValidationError{Fields: map[string]string{"id_token": "Google sign-in is not configured"}}
	}

	identity, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}

	user, err := s.upsertIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, &UnauthorizedError{Message: "Account is deactivated"}
	}

	s.touchLogin(ctx, user.ID)
	return s.issueTokens(ctx, user)
}

func (s *AuthService) upsertIdentity(ctx context.Context, identity *models.Identity) (*models.User, error) {
	user, err := s.users.GetByGoogleID(ctx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	email := strings.ToLower(identity.Email)
	user, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		if err := s.users.LinkGoogle(ctx, user.ID, identity.Subject); err != nil {
			return nil, fmt.Errorf("failed to link Google account: %w", err)
		}
		user.GoogleID = &identity.Subject
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	googleID := identity.Subject
	var avatarURL *string
	if identity.Picture != "" {
		avatarURL = &identity.Picture
	}

	user = &models.User{
		Email:        email,
		FullName:     identity.Name,
		AvatarURL:    avatarURL,
		AuthProvider: "google",
		GoogleID:     &googleID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshRequest) (*models.AuthTokens, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	userIDStr, err := s.kv.Get(ctx, refreshPrefix+req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrKeyMissing) {
			return nil, &UnauthorizedError{Message: "Invalid or expired refresh token. Please log in again."}
		}
		return nil, err
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	// Rotation: the presented token is single use.
	if err := s.kv.Del(ctx, refreshPrefix+req.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Invalid or expired refresh token. Please log in again."}
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, &UnauthorizedError{Message: "Account is deactivated"}
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.kv.Del(ctx, refreshPrefix+refreshToken)
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound()
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) touchLogin(ctx context.Context, userID uuid.UUID) {
	if err := s.users.UpdateLastLogin(ctx, userID); err != nil {
		logger.FromContext(ctx).Warn("failed to update last login", "user_id", userID, "error", err)
	}
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(64)
	if err != nil {
		return nil, err
	}

	if err := s.kv.Set(ctx, refreshPrefix+refreshToken, user.ID.String(), refreshTokenTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwt.TTL.Seconds()),
	}, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
