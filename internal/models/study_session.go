package models

import (
	"time"

	"github.com/google/uuid"

	"flashdeck-backend/internal/study"
)

// StudySession is a study pass as persisted between requests.
type StudySession struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"user_id"`
	DeckID    uuid.UUID   `json:"deck_id"`
	State     study.State `json:"state"`
	StartedAt time.Time   `json:"started_at"`
}

// StudyPass is the record of a completed study session.
type StudyPass struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	DeckID          uuid.UUID `json:"deck_id"`
	CardCount       int       `json:"card_count"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds int       `json:"duration_seconds"`
}

// StudyView is what a client needs to render the current step of a pass.
// Answer is only set while the card is revealed.
type StudyView struct {
	SessionID uuid.UUID       `json:"session_id"`
	DeckID    uuid.UUID       `json:"deck_id"`
	Card      *StudyCardView  `json:"card"`
	Revealed  bool            `json:"revealed"`
	Finished  bool            `json:"finished"`
	Progress  *study.Progress `json:"progress"`
}

type StudyCardView struct {
	ID       string  `json:"id"`
	Question string  `json:"question"`
	Answer   *string `json:"answer,omitempty"`
}
