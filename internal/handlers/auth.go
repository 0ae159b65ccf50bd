package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/models"
)

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, *models.AuthTokens, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error)
	Exchange(ctx context.Context, req models.ExchangeRequest) (*models.AuthTokens, error)
	RefreshToken(ctx context.Context, req models.RefreshRequest) (*models.AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type AuthHandler struct {
	authService authService
}

func NewAuthHandler(authService authService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Exchange trades an identity provider token for an API session.
func (h *AuthHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req models.ExchangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tokens, err := h.authService.Exchange(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, tokens, err := h.authService.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":   user,
		"tokens": tokens,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tokens, err := h.authService.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tokens, err := h.authService.RefreshToken(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
