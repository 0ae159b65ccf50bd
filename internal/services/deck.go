package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"flashdeck-backend/internal/cardparse"
	"flashdeck-backend/internal/logger"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/optimistic"
)

const (
	deckListPrefix = "decks:"
	deckListTTL    = 10 * time.Minute
)

type DeckStore interface {
	Create(ctx context.Context, d *models.Deck) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Deck, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Deck, error)
	Update(ctx context.Context, d *models.Deck) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type CardStore interface {
	Create(ctx context.Context, c *models.Flashcard) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Flashcard, error)
	ListByDeck(ctx context.Context, deckID, userID uuid.UUID) ([]models.Flashcard, error)
	Update(ctx context.Context, c *models.Flashcard) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	CreateMany(ctx context.Context, deckID, userID uuid.UUID, cards []cardparse.Card) (int, error)
}

// DeckService owns decks and their flashcards. Every operation is scoped to
// the calling user.
type DeckService struct {
	decks DeckStore
	cards CardStore
	kv    KV
}

func NewDeckService(decks DeckStore, cards CardStore, kv KV) *DeckService {
	return &DeckService{decks: decks, cards: cards, kv: kv}
}

func (s *DeckService) CreateDeck(ctx context.Context, userID uuid.UUID, req models.DeckRequest) (*models.Deck, error) {
	req = trimDeckRequest(req)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	deck := &models.Deck{
		UserID:      userID,
		Name:        req.Name,
		Description: optionalString(req.Description),
	}
	if err := s.decks.Create(ctx, deck); err != nil {
		return nil, fmt.Errorf("failed to create deck: %w", err)
	}

	s.invalidateDeckList(ctx, userID)
	return deck, nil
}

// ListDecks returns the user's decks by name, served from the cache when
// possible.
func (s *DeckService) ListDecks(ctx context.Context, userID uuid.UUID) ([]models.Deck, error) {
	var cached []models.Deck
	err := getJSON(ctx, s.kv, deckListKey(userID), &cached)
	if err == nil && cached != nil {
		return cached, nil
	}
	if err != nil && !errors.Is(err, ErrKeyMissing) {
		logger.FromContext(ctx).Warn("deck list cache read failed", "user_id", userID, "error", err)
	}

	decks, err := s.decks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}

	if err := setJSON(ctx, s.kv, deckListKey(userID), decks, deckListTTL); err != nil {
		logger.FromContext(ctx).Warn("deck list cache write failed", "user_id", userID, "error", err)
	}
	return decks, nil
}

func (s *DeckService) GetDeck(ctx context.Context, userID, deckID uuid.UUID) (*models.DeckDetail, error) {
	deck, err := s.ownedDeck(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}

	cards, err := s.cards.ListByDeck(ctx, deckID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flashcards: %w", err)
	}
	deck.CardCount = len(cards)
	return &models.DeckDetail{Deck: deck, Cards: cards}, nil
}

func (s *DeckService) UpdateDeck(ctx context.Context, userID, deckID uuid.UUID, req models.DeckRequest) (*models.Deck, error) {
	req = trimDeckRequest(req)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	deck, err := s.ownedDeck(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}

	deck.Name = req.Name
	deck.Description = optionalString(req.Description)
	if err := s.decks.Update(ctx, deck); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound()
		}
		return nil, fmt.Errorf("failed to update deck: %w", err)
	}

	s.invalidateDeckList(ctx, userID)
	return deck, nil
}

// DeleteDeck removes the deck from the cached list before deleting it, and
// puts the cached list back if the delete fails. When the cache cannot be
// read or written the deck is deleted anyway and the cached list dropped.
func (s *DeckService) DeleteDeck(ctx context.Context, userID, deckID uuid.UUID) error {
	cache := &deckListCache{kv: s.kv, key: deckListKey(userID)}

	without := func(decks []models.Deck) []models.Deck {
		if decks == nil {
			return nil
		}
		out := make([]models.Deck, 0, len(decks))
		for _, d := range decks {
			if d.ID != deckID {
				out = append(out, d)
			}
		}
		return out
	}

	committed := false
	err := optimistic.Apply(ctx, cache, without, func(ctx context.Context) error {
		committed = true
		return s.decks.Delete(ctx, deckID, userID)
	})
	if err != nil && !committed {
		logger.FromContext(ctx).Warn("deck list cache unavailable, deleting without it", "user_id", userID, "error", err)
		err = s.decks.Delete(ctx, deckID, userID)
		s.invalidateDeckList(ctx, userID)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errNotFound()
		}
		return fmt.Errorf("failed to delete deck: %w", err)
	}
	return nil
}

func (s *DeckService) ownedDeck(ctx context.Context, userID, deckID uuid.UUID) (*models.Deck, error) {
	deck, err := s.decks.GetByID(ctx, deckID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound()
		}
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}
	return deck, nil
}

func (s *DeckService) invalidateDeckList(ctx context.Context, userID uuid.UUID) {
	if err := s.kv.Del(ctx, deckListKey(userID)); err != nil {
		logger.FromContext(ctx).Warn("deck list cache invalidation failed", "user_id", userID, "error", err)
	}
}

func deckListKey(userID uuid.UUID) string {
	return deckListPrefix + userID.String()
}

// deckListCache adapts the cached deck list to optimistic.Store. A nil list
// means nothing is cached.
type deckListCache struct {
	kv  KV
	key string
}

func (c *deckListCache) Load(ctx context.Context) ([]models.Deck, error) {
	var decks []models.Deck
	err := getJSON(ctx, c.kv, c.key, &decks)
	if errors.Is(err, ErrKeyMissing) {
		return nil, nil
	}
	return decks, err
}

func (c *deckListCache) Save(ctx context.Context, decks []models.Deck) error {
	if decks == nil {
		return c.kv.Del(ctx, c.key)
	}
	return setJSON(ctx, c.kv, c.key, decks, deckListTTL)
}

func trimDeckRequest(req models.DeckRequest) models.DeckRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	return req
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
