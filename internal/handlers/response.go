package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"flashdeck-backend/internal/logger"
	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/services"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	}
}

// decodeJSON reads a bounded JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	return true
}

// pathID parses a UUID route parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid "+label+" ID", r))
		return uuid.Nil, false
	}
	return id, true
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *services.ValidationError
		conflictErr   *services.ConflictError
		notFoundErr   *services.NotFoundError
		unauthErr     *services.UnauthorizedError
		forbiddenErr  *services.ForbiddenError
		rateErr       *services.RateLimitError
		upstreamErr   *services.UpstreamError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationErr.Fields, r))
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", conflictErr.Message, r))
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFoundErr.Message, r))
	case errors.As(err, &unauthErr):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthErr.Message, r))
	case errors.As(err, &forbiddenErr):
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", forbiddenErr.Message, r))
	case errors.As(err, &rateErr):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", rateErr.Message, r))
	case errors.As(err, &upstreamErr):
		logger.FromContext(r.Context()).Error("upstream failure", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", upstreamErr.Message, r))
	default:
		logger.FromContext(r.Context()).Error("unhandled service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
