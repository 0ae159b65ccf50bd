package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"flashdeck-backend/internal/models"
)

type StudyPassRepo struct {
	pool *pgxpool.Pool
}

func NewStudyPassRepo(pool *pgxpool.Pool) *StudyPassRepo {
	return &StudyPassRepo{pool: pool}
}

// Record stores a finished pass. Duration is derived from the start time and
// capped at twelve hours.
func (r *StudyPassRepo) Record(ctx context.Context, p *models.StudyPass) error {
	query := `
		INSERT INTO study_passes (user_id, deck_id, card_count, started_at, duration_seconds)
		VALUES ($1, $2, $3, $4, GREATEST(0, LEAST(43200, EXTRACT(EPOCH FROM (NOW() - $4::timestamptz))::INT)))
		RETURNING id, finished_at, duration_seconds`

	return r.pool.QueryRow(ctx, query, p.UserID, p.DeckID, p.CardCount, p.StartedAt).
		Scan(&p.ID, &p.FinishedAt, &p.DurationSeconds)
}
