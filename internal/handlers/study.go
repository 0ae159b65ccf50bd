package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/models"
)

type studyService interface {
	Start(ctx context.Context, userID, deckID uuid.UUID) (*models.StudyView, error)
	Get(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudyView, error)
	Flip(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudyView, error)
	Advance(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudyView, error)
}

type StudyHandler struct {
	study studyService
}

func NewStudyHandler(study studyService) *StudyHandler {
	return &StudyHandler{study: study}
}

func (h *StudyHandler) Start(w http.ResponseWriter, r *http.Request) {
	deckID, ok := pathID(w, r, "id", "deck")
	if !ok {
		return
	}

	view, err := h.study.Start(r.Context(), middleware.GetUserID(r.Context()), deckID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *StudyHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.study.Get)
}

func (h *StudyHandler) Flip(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.study.Flip)
}

func (h *StudyHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.study.Advance)
}

func (h *StudyHandler) step(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudyView, error)) {
	sessionID, ok := pathID(w, r, "sid", "session")
	if !ok {
		return
	}

	view, err := op(r.Context(), middleware.GetUserID(r.Context()), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
