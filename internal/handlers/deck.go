package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/models"
)

type deckService interface {
	CreateDeck(ctx context.Context, userID uuid.UUID, req models.DeckRequest) (*models.Deck, error)
	ListDecks(ctx context.Context, userID uuid.UUID) ([]models.Deck, error)
	GetDeck(ctx context.Context, userID, deckID uuid.UUID) (*models.DeckDetail, error)
	UpdateDeck(ctx context.Context, userID, deckID uuid.UUID, req models.DeckRequest) (*models.Deck, error)
	DeleteDeck(ctx context.Context, userID, deckID uuid.UUID) error

	CreateFlashcard(ctx context.Context, userID uuid.UUID, req models.FlashcardRequest) (*models.Flashcard, error)
	ListFlashcards(ctx context.Context, userID, deckID uuid.UUID) ([]models.Flashcard, error)
	UpdateFlashcard(ctx context.Context, userID, cardID uuid.UUID, req models.FlashcardUpdateRequest) (*models.Flashcard, error)
	DeleteFlashcard(ctx context.Context, userID, cardID uuid.UUID) error
}

type DeckHandler struct {
	decks deckService
}

func NewDeckHandler(decks deckService) *DeckHandler {
	return &DeckHandler{decks: decks}
}

func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	decks, err := h.decks.ListDecks(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"decks": decks})
}

func (h *DeckHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.DeckRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	deck, err := h.decks.CreateDeck(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, deck)
}

func (h *DeckHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "deck")
	if !ok {
		return
	}

	detail, err := h.decks.GetDeck(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *DeckHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "deck")
	if !ok {
		return
	}
	var req models.DeckRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	deck, err := h.decks.UpdateDeck(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

func (h *DeckHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "deck")
	if !ok {
		return
	}

	if err := h.decks.DeleteDeck(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deck deleted"})
}

func (h *DeckHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "deck")
	if !ok {
		return
	}

	cards, err := h.decks.ListFlashcards(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

func (h *DeckHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req models.FlashcardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	card, err := h.decks.CreateFlashcard(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (h *DeckHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "flashcard")
	if !ok {
		return
	}
	var req models.FlashcardUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	card, err := h.decks.UpdateFlashcard(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *DeckHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "flashcard")
	if !ok {
		return
	}

	if err := h.decks.DeleteFlashcard(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Flashcard deleted"})
}
