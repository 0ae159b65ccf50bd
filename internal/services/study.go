package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"flashdeck-backend/internal/logger"
	"flashdeck-backend/internal/metrics"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/optimistic"
	"flashdeck-backend/internal/study"
)

const (
	studyPrefix = "study:"
	studyTTL    = 6 * time.Hour
)

type StudyPassStore interface {
	Record(ctx context.Context, p *models.StudyPass) error
}

// StudyService keeps in-progress study passes in the key-value store and
// records each pass that runs to the end.
type StudyService struct {
	decks   *DeckService
	passes  StudyPassStore
	kv      KV
	newRand func() study.Rand
	now     func() time.Time
}

func NewStudyService(decks *DeckService, passes StudyPassStore, kv KV) *StudyService {
	return &StudyService{
		decks:   decks,
		passes:  passes,
		kv:      kv,
		newRand: study.NewRand,
		now:     time.Now,
	}
}

// Start shuffles the deck's cards into a new pass.
func (s *StudyService) Start(ctx context.Context, userID, deckID uuid.UUID) (*models.StudyView, error) {
	cards, err := s.decks.ListFlashcards(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}

	studyCards := make([]study.Card, len(cards))
	for i, c := range cards {
		studyCards[i] = study.Card{ID: c.ID.String(), Question: c.Question, Answer: c.Answer}
	}

	session := models.StudySession{
		ID:        uuid.New(),
		UserID:    userID,
		DeckID:    deckID,
		State:     study.Start(studyCards, s.newRand()),
		StartedAt: s.now(),
	}

	store := s.sessionStore(userID, session.ID)
	if err := store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save study session: %w", err)
	}
	return buildStudyView(session), nil
}

func (s *StudyService) Get(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudyView, error) {
	session, err := s.sessionStore(userID, sessionID).Load(ctx)
	if err != nil {
		return nil, err
	}
	return buildStudyView(session), nil
}

func (s *StudyService) Flip(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudyView, error) {
	return s.transition(ctx, userID, sessionID, study.Flip)
}

func (s *StudyService) Advance(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudyView, error) {
	return s.transition(ctx, userID, sessionID, study.Advance)
}

// transition applies step to the stored state. When step finishes the pass,
// the pass is recorded; if recording fails the previous state is restored
// so the final advance can be retried.
func (s *StudyService) transition(ctx context.Context, userID, sessionID uuid.UUID, step func(study.State) study.State) (*models.StudyView, error) {
	var (
		next      models.StudySession
		finishing bool
	)

	apply := func(prev models.StudySession) models.StudySession {
		next = prev
		next.State = step(prev.State)
		finishing = !prev.State.Finished && next.State.Finished
		return next
	}

	commit := func(ctx context.Context) error {
		if !finishing {
			return nil
		}
		pass := &models.StudyPass{
			UserID:    next.UserID,
			DeckID:    next.DeckID,
			CardCount: len(next.State.Order),
			StartedAt: next.StartedAt,
		}
		if err := s.passes.Record(ctx, pass); err != nil {
			return fmt.Errorf("failed to record study pass: %w", err)
		}
		metrics.StudyPassesFinished.Inc()
		logger.FromContext(ctx).Info("study pass finished",
			"deck_id", pass.DeckID, "cards", pass.CardCount, "duration_seconds", pass.DurationSeconds)
		return nil
	}

	if err := optimistic.Apply(ctx, s.sessionStore(userID, sessionID), apply, commit); err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, nf
		}
		return nil, err
	}
	return buildStudyView(next), nil
}

func (s *StudyService) sessionStore(userID, sessionID uuid.UUID) *studySessionStore {
	return &studySessionStore{kv: s.kv, key: studyPrefix + sessionID.String(), userID: userID}
}

// studySessionStore loads and saves one session, hiding sessions that
// belong to other users.
type studySessionStore struct {
	kv     KV
	key    string
	userID uuid.UUID
}

func (st *studySessionStore) Load(ctx context.Context) (models.StudySession, error) {
	var session models.StudySession
	if err := getJSON(ctx, st.kv, st.key, &session); err != nil {
		if errors.Is(err, ErrKeyMissing) {
			return session, errNotFound()
		}
		return session, fmt.Errorf("failed to load study session: %w", err)
	}
	if session.UserID != st.userID {
		return models.StudySession{}, errNotFound()
	}
	return session, nil
}

func (st *studySessionStore) Save(ctx context.Context, session models.StudySession) error {
	return setJSON(ctx, st.kv, st.key, session, studyTTL)
}

func buildStudyView(session models.StudySession) *models.StudyView {
	view := &models.StudyView{
		SessionID: session.ID,
		DeckID:    session.DeckID,
		Revealed:  session.State.Revealed,
		Finished:  session.State.Finished,
	}

	if progress, ok := study.ProgressOf(session.State); ok {
		view.Progress = &progress
	}

	card, ok := study.CurrentCard(session.State)
	if !ok {
		return view
	}
	cv := &models.StudyCardView{ID: card.ID, Question: card.Question}
	if session.State.Revealed {
		answer := card.Answer
		cv.Answer = &answer
	}
	view.Card = cv
	return view
}
