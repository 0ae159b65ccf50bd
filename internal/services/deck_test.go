package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdeck-backend/internal/models"
)

func newTestDeckService() (*DeckService, *stubDeckStore, *memKV) {
	store := newStubDeckStore()
	kv := newMemKV()
	return NewDeckService(store, stubCardStore{store}, kv), store, kv
}

func TestDeckService_CreateDeck_Validation(t *testing.T) {
	svc, _, _ := newTestDeckService()
	userID := uuid.New()

	tests := []struct {
		name      string
		req       models.DeckRequest
		wantField string
	}{
		{"minimum name", models.DeckRequest{Name: "Go"}, ""},
		{"maximum name", models.DeckRequest{Name: strings.Repeat("n", 50)}, ""},
		{"name too short", models.DeckRequest{Name: "G"}, "name"},
		{"name too long", models.DeckRequest{Name: strings.Repeat("n", 51)}, "name"},
		{"whitespace name", models.DeckRequest{Name: "   "}, "name"},
		{"description optional", models.DeckRequest{Name: "Biology", Description: ""}, ""},
		{"description too short", models.DeckRequest{Name: "Biology", Description: "x"}, "description"},
		{"description too long", models.DeckRequest{Name: "Biology", Description: strings.Repeat("d", 201)}, "description"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deck, err := svc.CreateDeck(context.Background(), userID, tc.req)
			if tc.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, userID, deck.UserID)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.wantField)
		})
	}
}

func TestDeckService_ListDecks_UsesCache(t *testing.T) {
	svc, store, kv := newTestDeckService()
	ctx := context.Background()
	userID := uuid.New()
	store.addDeck(userID, "Physics")
	store.addDeck(userID, "Chemistry")
	store.addDeck(uuid.New(), "Someone else")

	decks, err := svc.ListDecks(ctx, userID)
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, "Chemistry", decks[0].Name)
	assert.Equal(t, "Physics", decks[1].Name)

	_, err = svc.ListDecks(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.listCalls, "second list is served from cache")

	_, err = svc.CreateDeck(ctx, userID, models.DeckRequest{Name: "Algebra"})
	require.NoError(t, err)
	assert.False(t, kv.has(deckListKey(userID)), "creating a deck invalidates the cache")

	decks, err = svc.ListDecks(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, decks, 3)
	assert.Equal(t, 2, store.listCalls)
}

func TestDeckService_DeleteDeck(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("removes deck from cached list", func(t *testing.T) {
		svc, store, _ := newTestDeckService()
		keep := store.addDeck(userID, "Keep")
		drop := store.addDeck(userID, "Drop")
		store.addCard(drop, "Question?", "Answer")

		_, err := svc.ListDecks(ctx, userID)
		require.NoError(t, err)

		require.NoError(t, svc.DeleteDeck(ctx, userID, drop.ID))

		decks, err := svc.ListDecks(ctx, userID)
		require.NoError(t, err)
		require.Len(t, decks, 1)
		assert.Equal(t, keep.ID, decks[0].ID)
		assert.Equal(t, 1, store.listCalls, "list after delete is still cached")
		assert.Zero(t, store.countCards(drop.ID), "cards are deleted with the deck")
	})

	t.Run("restores cached list when delete fails", func(t *testing.T) {
		svc, store, _ := newTestDeckService()
		deck := store.addDeck(userID, "Sticky")
		_, err := svc.ListDecks(ctx, userID)
		require.NoError(t, err)

		store.deleteErr = errors.New("connection reset")
		err = svc.DeleteDeck(ctx, userID, deck.ID)
		require.Error(t, err)

		decks, err := svc.ListDecks(ctx, userID)
		require.NoError(t, err)
		require.Len(t, decks, 1)
		assert.Equal(t, deck.ID, decks[0].ID)
		assert.Equal(t, 1, store.listCalls)
	})

	t.Run("deletes when cache is unavailable", func(t *testing.T) {
		svc, store, kv := newTestDeckService()
		deck := store.addDeck(userID, "Offline")
		kv.getErr = errors.New("dial tcp 127.0.0.1:6379: connection refused")

		require.NoError(t, svc.DeleteDeck(ctx, userID, deck.ID))
		assert.NotContains(t, store.decks, deck.ID)
	})

	t.Run("deletes and drops a corrupted cached list", func(t *testing.T) {
		svc, store, kv := newTestDeckService()
		deck := store.addDeck(userID, "Garbled")
		kv.data[deckListKey(userID)] = "{not json"

		require.NoError(t, svc.DeleteDeck(ctx, userID, deck.ID))
		assert.NotContains(t, store.decks, deck.ID)
		assert.False(t, kv.has(deckListKey(userID)))
	})

	t.Run("deletes when cached list cannot be saved", func(t *testing.T) {
		svc, store, kv := newTestDeckService()
		deck := store.addDeck(userID, "Readonly")
		_, err := svc.ListDecks(ctx, userID)
		require.NoError(t, err)
		kv.setErr = errors.New("READONLY You can't write against a read only replica")

		require.NoError(t, svc.DeleteDeck(ctx, userID, deck.ID))
		assert.NotContains(t, store.decks, deck.ID)
		assert.False(t, kv.has(deckListKey(userID)))
	})

	t.Run("cache failure does not hide a missing deck", func(t *testing.T) {
		svc, _, kv := newTestDeckService()
		kv.getErr = errors.New("connection refused")

		err := svc.DeleteDeck(ctx, userID, uuid.New())
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
	})

	t.Run("other user's deck is not found", func(t *testing.T) {
		svc, store, _ := newTestDeckService()
		deck := store.addDeck(uuid.New(), "Private")

		err := svc.DeleteDeck(ctx, userID, deck.ID)
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, notFoundMessage, nf.Message)
		assert.Contains(t, store.decks, deck.ID)
	})
}

func TestDeckService_GetDeck_Ownership(t *testing.T) {
	svc, store, _ := newTestDeckService()
	owner := uuid.New()
	deck := store.addDeck(owner, "Owned")
	store.addCard(deck, "First?", "one")
	store.addCard(deck, "Second?", "two")

	detail, err := svc.GetDeck(context.Background(), owner, deck.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Deck.CardCount)
	require.Len(t, detail.Cards, 2)
	assert.Equal(t, "First?", detail.Cards[0].Question)

	_, err = svc.GetDeck(context.Background(), uuid.New(), deck.ID)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDeckService_UpdateDeck_ClearsDescription(t *testing.T) {
	svc, store, _ := newTestDeckService()
	userID := uuid.New()
	deck := store.addDeck(userID, "Old name")
	desc := "Some description"
	deck.Description = &desc

	updated, err := svc.UpdateDeck(context.Background(), userID, deck.ID, models.DeckRequest{Name: "New name"})
	require.NoError(t, err)
	assert.Equal(t, "New name", updated.Name)
	assert.Nil(t, updated.Description)
}

func TestDeckService_Flashcards(t *testing.T) {
	svc, store, _ := newTestDeckService()
	ctx := context.Background()
	userID := uuid.New()
	deck := store.addDeck(userID, "Capitals")
	foreign := store.addDeck(uuid.New(), "Not mine")

	tests := []struct {
		name    string
		req     models.FlashcardRequest
		wantErr any
	}{
		{"valid", models.FlashcardRequest{DeckID: deck.ID, Question: "Capital of Peru?", Answer: "Lima"}, nil},
		{"question too short", models.FlashcardRequest{DeckID: deck.ID, Question: "Q", Answer: "Lima"}, &ValidationError{}},
		{"question too long", models.FlashcardRequest{DeckID: deck.ID, Question: strings.Repeat("q", 201), Answer: "Lima"}, &ValidationError{}},
		{"answer too long", models.FlashcardRequest{DeckID: deck.ID, Question: "Capital?", Answer: strings.Repeat("a", 501)}, &ValidationError{}},
		{"missing deck", models.FlashcardRequest{Question: "Capital?", Answer: "Lima"}, &ValidationError{}},
		{"someone else's deck", models.FlashcardRequest{DeckID: foreign.ID, Question: "Capital?", Answer: "Lima"}, &NotFoundError{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			card, err := svc.CreateFlashcard(ctx, userID, tc.req)
			switch want := tc.wantErr.(type) {
			case nil:
				require.NoError(t, err)
				assert.Equal(t, userID, card.UserID)
			case *ValidationError:
				assert.ErrorAs(t, err, &want)
			case *NotFoundError:
				assert.ErrorAs(t, err, &want)
			}
		})
	}

	cards, err := svc.ListFlashcards(ctx, userID, deck.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	updated, err := svc.UpdateFlashcard(ctx, userID, cards[0].ID, models.FlashcardUpdateRequest{Question: "Capital of Chile?", Answer: "Santiago"})
	require.NoError(t, err)
	assert.Equal(t, deck.ID, updated.DeckID)

	_, err = svc.UpdateFlashcard(ctx, uuid.New(), cards[0].ID, models.FlashcardUpdateRequest{Question: "Hijack?", Answer: "No"})
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)

	require.NoError(t, svc.DeleteFlashcard(ctx, userID, cards[0].ID))
	assert.ErrorAs(t, svc.DeleteFlashcard(ctx, userID, cards[0].ID), &nf)
}
