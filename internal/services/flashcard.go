package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"flashdeck-backend/internal/cardparse"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/repository"
)

func (s *DeckService) CreateFlashcard(ctx context.Context, userID uuid.UUID, req models.FlashcardRequest) (*models.Flashcard, error) {
	req.Question = strings.TrimSpace(req.Question)
	req.Answer = strings.TrimSpace(req.Answer)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.ownedDeck(ctx, userID, req.DeckID); err != nil {
		return nil, err
	}

	card := &models.Flashcard{
		DeckID:   req.DeckID,
		UserID:   userID,
		Question: req.Question,
		Answer:   req.Answer,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, mapCardWriteError(err)
	}

	s.invalidateDeckList(ctx, userID)
	return card, nil
}

func (s *DeckService) ListFlashcards(ctx context.Context, userID, deckID uuid.UUID) ([]models.Flashcard, error) {
	if _, err := s.ownedDeck(ctx, userID, deckID); err != nil {
		return nil, err
	}

	cards, err := s.cards.ListByDeck(ctx, deckID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flashcards: %w", err)
	}
	return cards, nil
}

func (s *DeckService) UpdateFlashcard(ctx context.Context, userID, cardID uuid.UUID, req models.FlashcardUpdateRequest) (*models.Flashcard, error) {
	req.Question = strings.TrimSpace(req.Question)
	req.Answer = strings.TrimSpace(req.Answer)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	card := &models.Flashcard{
		ID:       cardID,
		UserID:   userID,
		Question: req.Question,
		Answer:   req.Answer,
	}
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, mapCardWriteError(err)
	}
	return card, nil
}

func (s *DeckService) DeleteFlashcard(ctx context.Context, userID, cardID uuid.UUID) error {
	if err := s.cards.Delete(ctx, cardID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errNotFound()
		}
		return fmt.Errorf("failed to delete flashcard: %w", err)
	}

	s.invalidateDeckList(ctx, userID)
	return nil
}

// addGeneratedCards stores parsed cards in an owned deck, skipping
// duplicates, and returns how many were new.
func (s *DeckService) addGeneratedCards(ctx context.Context, userID, deckID uuid.UUID, cards []cardparse.Card) (int, error) {
	created, err := s.cards.CreateMany(ctx, deckID, userID, cards)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return 0, errNotFound()
		}
		return 0, fmt.Errorf("failed to save generated flashcards: %w", err)
	}
	if created > 0 {
		s.invalidateDeckList(ctx, userID)
	}
	return created, nil
}

func mapCardWriteError(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows), repository.IsForeignKeyViolation(err):
		return errNotFound()
	case repository.IsUniqueViolation(err):
		return &ConflictError{Message: "This flashcard already exists in the deck"}
	default:
		return fmt.Errorf("failed to save flashcard: %w", err)
	}
}
