package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"flashdeck-backend/internal/cardparse"
	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/models"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func newTestJWT() *middleware.JWTAuth {
	return middleware.NewJWTAuth(testJWTSecret, 15*time.Minute)
}

// memKV is an in-memory KV that ignores TTLs.
type memKV struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	setErr  error
	setHook func(key string) error
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}}
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrKeyMissing
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.setHook != nil {
		if err := m.setHook(key); err != nil {
			return err
		}
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memKV) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type stubUserStore struct {
	byID      map[uuid.UUID]*models.User
	createErr error
	linked    map[uuid.UUID]string
}

func newStubUserStore(users ...*models.User) *stubUserStore {
	s := &stubUserStore{byID: map[uuid.UUID]*models.User{}, linked: map[uuid.UUID]string{}}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func (s *stubUserStore) Create(_ context.Context, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	user.ID = uuid.New()
	user.IsActive = true
	user.CreatedAt = time.Now()
	s.byID[user.ID] = user
	return nil
}

func (s *stubUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUserStore) GetByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	for _, u := range s.byID {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUserStore) LinkGoogle(_ context.Context, userID uuid.UUID, googleID string) error {
	s.linked[userID] = googleID
	if u, ok := s.byID[userID]; ok {
		u.GoogleID = &googleID
	}
	return nil
}

func (s *stubUserStore) UpdateLastLogin(_ context.Context, userID uuid.UUID) error {
	if u, ok := s.byID[userID]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

type stubVerifier struct {
	identity *models.Identity
	err      error
}

func (v *stubVerifier) Verify(context.Context, string) (*models.Identity, error) {
	return v.identity, v.err
}

// stubDeckStore keeps decks and cards in memory with the same ownership
// rules as the Postgres repositories.
type stubDeckStore struct {
	decks     map[uuid.UUID]*models.Deck
	cards     map[uuid.UUID]*models.Flashcard
	listCalls int
	deleteErr error
}

func newStubDeckStore() *stubDeckStore {
	return &stubDeckStore{decks: map[uuid.UUID]*models.Deck{}, cards: map[uuid.UUID]*models.Flashcard{}}
}

func (s *stubDeckStore) addDeck(userID uuid.UUID, name string) *models.Deck {
	d := &models.Deck{ID: uuid.New(), UserID: userID, Name: name, CreatedAt: time.Now()}
	s.decks[d.ID] = d
	return d
}

func (s *stubDeckStore) addCard(deck *models.Deck, q, a string) *models.Flashcard {
	c := &models.Flashcard{ID: uuid.New(), DeckID: deck.ID, UserID: deck.UserID, Question: q, Answer: a, CreatedAt: time.Now().Add(time.Duration(len(s.cards)) * time.Millisecond)}
	s.cards[c.ID] = c
	return c
}

func (s *stubDeckStore) Create(_ context.Context, d *models.Deck) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	s.decks[d.ID] = &cp
	return nil
}

func (s *stubDeckStore) GetByID(_ context.Context, id, userID uuid.UUID) (*models.Deck, error) {
	d, ok := s.decks[id]
	if !ok || d.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	cp.CardCount = s.countCards(id)
	return &cp, nil
}

func (s *stubDeckStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Deck, error) {
	s.listCalls++
	out := make([]models.Deck, 0)
	for _, d := range s.decks {
		if d.UserID == userID {
			cp := *d
			cp.CardCount = s.countCards(d.ID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *stubDeckStore) Update(_ context.Context, d *models.Deck) error {
	existing, ok := s.decks[d.ID]
	if !ok || existing.UserID != d.UserID {
		return pgx.ErrNoRows
	}
	cp := *d
	s.decks[d.ID] = &cp
	return nil
}

func (s *stubDeckStore) Delete(_ context.Context, id, userID uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	d, ok := s.decks[id]
	if !ok || d.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(s.decks, id)
	for cid, c := range s.cards {
		if c.DeckID == id {
			delete(s.cards, cid)
		}
	}
	return nil
}

func (s *stubDeckStore) countCards(deckID uuid.UUID) int {
	n := 0
	for _, c := range s.cards {
		if c.DeckID == deckID {
			n++
		}
	}
	return n
}

// stubCardStore shares storage with a stubDeckStore.
type stubCardStore struct {
	*stubDeckStore
}

func (s stubCardStore) Create(_ context.Context, c *models.Flashcard) error {
	if _, ok := s.decks[c.DeckID]; !ok {
		return errors.New("foreign key")
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	cp := *c
	s.cards[c.ID] = &cp
	return nil
}

func (s stubCardStore) GetByID(_ context.Context, id, userID uuid.UUID) (*models.Flashcard, error) {
	c, ok := s.cards[id]
	if !ok || c.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (s stubCardStore) ListByDeck(_ context.Context, deckID, userID uuid.UUID) ([]models.Flashcard, error) {
	out := make([]models.Flashcard, 0)
	for _, c := range s.cards {
		if c.DeckID == deckID && c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s stubCardStore) Update(_ context.Context, c *models.Flashcard) error {
	existing, ok := s.cards[c.ID]
	if !ok || existing.UserID != c.UserID {
		return pgx.ErrNoRows
	}
	existing.Question = c.Question
	existing.Answer = c.Answer
	c.DeckID = existing.DeckID
	return nil
}

func (s stubCardStore) Delete(_ context.Context, id, userID uuid.UUID) error {
	c, ok := s.cards[id]
	if !ok || c.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(s.cards, id)
	return nil
}

func (s stubCardStore) CreateMany(_ context.Context, deckID, userID uuid.UUID, cards []cardparse.Card) (int, error) {
	inserted := 0
	for _, pc := range cards {
		dup := false
		for _, c := range s.cards {
			if c.DeckID == deckID && c.Question == pc.Question && c.Answer == pc.Answer {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		id := uuid.New()
		s.cards[id] = &models.Flashcard{ID: id, DeckID: deckID, UserID: userID, Question: pc.Question, Answer: pc.Answer, CreatedAt: time.Now()}
		inserted++
	}
	return inserted, nil
}

type stubCompleter struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (c *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.calls++
	c.prompts = append(c.prompts, prompt)
	return c.response, c.err
}

type stubPassStore struct {
	recorded []*models.StudyPass
	err      error
}

func (s *stubPassStore) Record(_ context.Context, p *models.StudyPass) error {
	if s.err != nil {
		return s.err
	}
	p.ID = uuid.New()
	s.recorded = append(s.recorded, p)
	return nil
}
