package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashdeck-backend/internal/models"
)

// JobRepo persists generation job status. The source text itself travels
// on the queue and is not stored.
type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func (r *JobRepo) Create(ctx context.Context, j *models.Job) error {
	j.ID = uuid.New()
	j.Status = models.JobPending
	j.RetryCount = 0
	if j.MaxRetries == 0 {
		j.MaxRetries = 3
	}

	query := `INSERT INTO generation_jobs (id, user_id, deck_id, source, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query, j.ID, j.UserID, j.DeckID, j.Source, j.Status).Scan(&j.CreatedAt)
}

func (r *JobRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Job, error) {
	j := &models.Job{MaxRetries: 3}
	query := `SELECT id, user_id, deck_id, source, status, created_count, retry_count, error_message, created_at, completed_at
		FROM generation_jobs WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&j.ID, &j.UserID, &j.DeckID, &j.Source, &j.Status, &j.CreatedCount,
		&j.RetryCount, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if status == models.JobCompleted || status == models.JobFailed {
		_, err := r.pool.Exec(ctx,
			"UPDATE generation_jobs SET status = $1, completed_at = $2 WHERE id = $3",
			status, time.Now(), id,
		)
		return err
	}
	_, err := r.pool.Exec(ctx, "UPDATE generation_jobs SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *JobRepo) Complete(ctx context.Context, id uuid.UUID, created int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE generation_jobs SET status = $1, created_count = $2, error_message = NULL, completed_at = $3
		 WHERE id = $4`,
		models.JobCompleted, created, time.Now(), id,
	)
	return err
}

func (r *JobRepo) UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE generation_jobs SET error_message = $1, retry_count = $2 WHERE id = $3",
		errMsg, retryCount, id,
	)
	return err
}
