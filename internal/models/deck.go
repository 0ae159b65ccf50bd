package models

import (
	"time"

	"github.com/google/uuid"
)

type Deck struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CardCount   int       `json:"card_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Flashcard struct {
	ID        uuid.UUID `json:"id"`
	DeckID    uuid.UUID `json:"deck_id"`
	UserID    uuid.UUID `json:"user_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeckRequest is used for both create and update. An empty description
// clears it.
type DeckRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=50"`
	Description string `json:"description" validate:"omitempty,min=2,max=200"`
}

type FlashcardRequest struct {
	DeckID   uuid.UUID `json:"deck_id" validate:"required"`
	Question string    `json:"question" validate:"required,min=2,max=200"`
	Answer   string    `json:"answer" validate:"required,min=2,max=500"`
}

type FlashcardUpdateRequest struct {
	Question string `json:"question" validate:"required,min=2,max=200"`
	Answer   string `json:"answer" validate:"required,min=2,max=500"`
}

type GenerateRequest struct {
	DeckID uuid.UUID `json:"deck_id" validate:"required"`
	Text   string    `json:"text" validate:"required,min=50,max=25000"`
}

type GenerateVideoRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type GenerationResult struct {
	Created int    `json:"created"`
	Message string `json:"message"`
}

// DeckDetail is a deck together with its cards in creation order.
type DeckDetail struct {
	Deck  *Deck       `json:"deck"`
	Cards []Flashcard `json:"cards"`
}
