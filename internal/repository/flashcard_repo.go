package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashdeck-backend/internal/cardparse"
	"flashdeck-backend/internal/models"
)

type FlashcardRepo struct {
	pool *pgxpool.Pool
}

func NewFlashcardRepo(pool *pgxpool.Pool) *FlashcardRepo {
	return &FlashcardRepo{pool: pool}
}

func (r *FlashcardRepo) Create(ctx context.Context, c *models.Flashcard) error {
	c.ID = uuid.New()
	query := `INSERT INTO flashcards (id, deck_id, user_id, question, answer)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query, c.ID, c.DeckID, c.UserID, c.Question, c.Answer).
		Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *FlashcardRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Flashcard, error) {
	c := &models.Flashcard{}
	query := `SELECT id, deck_id, user_id, question, answer, created_at, updated_at
		FROM flashcards WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&c.ID, &c.DeckID, &c.UserID, &c.Question, &c.Answer, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *FlashcardRepo) ListByDeck(ctx context.Context, deckID, userID uuid.UUID) ([]models.Flashcard, error) {
	query := `SELECT id, deck_id, user_id, question, answer, created_at, updated_at
		FROM flashcards WHERE deck_id = $1 AND user_id = $2 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, deckID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := make([]models.Flashcard, 0)
	for rows.Next() {
		var c models.Flashcard
		if err := rows.Scan(&c.ID, &c.DeckID, &c.UserID, &c.Question, &c.Answer, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (r *FlashcardRepo) Update(ctx context.Context, c *models.Flashcard) error {
	query := `UPDATE flashcards SET question = $1, answer = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4 RETURNING deck_id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query, c.Question, c.Answer, c.ID, c.UserID).
		Scan(&c.DeckID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *FlashcardRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM flashcards WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CreateMany inserts generated cards in one transaction, skipping any that
// already exist in the deck, and returns how many rows were written.
func (r *FlashcardRepo) CreateMany(ctx context.Context, deckID, userID uuid.UUID, cards []cardparse.Card) (int, error) {
	if len(cards) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range cards {
		batch.Queue(`INSERT INTO flashcards (id, deck_id, user_id, question, answer)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (deck_id, question, answer) DO NOTHING`,
			uuid.New(), deckID, userID, c.Question, c.Answer,
		)
	}

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range cards {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, err
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit cards: %w", err)
	}
	return inserted, nil
}
