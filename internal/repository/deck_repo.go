package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashdeck-backend/internal/models"
)

type DeckRepo struct {
	pool *pgxpool.Pool
}

func NewDeckRepo(pool *pgxpool.Pool) *DeckRepo {
	return &DeckRepo{pool: pool}
}

func (r *DeckRepo) Create(ctx context.Context, d *models.Deck) error {
	d.ID = uuid.New()
	query := `INSERT INTO decks (id, user_id, name, description)
		VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query, d.ID, d.UserID, d.Name, d.Description).
		Scan(&d.CreatedAt, &d.UpdatedAt)
}

// GetByID returns the deck only if it belongs to userID.
func (r *DeckRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Deck, error) {
	d := &models.Deck{}
	query := `SELECT d.id, d.user_id, d.name, d.description, d.created_at, d.updated_at,
			(SELECT COUNT(*) FROM flashcards f WHERE f.deck_id = d.id)
		FROM decks d WHERE d.id = $1 AND d.user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&d.ID, &d.UserID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt, &d.CardCount,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListByUser returns the user's decks ordered by name, each with its card count.
func (r *DeckRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Deck, error) {
	query := `SELECT d.id, d.user_id, d.name, d.description, d.created_at, d.updated_at, COUNT(f.id)
		FROM decks d
		LEFT JOIN flashcards f ON f.deck_id = d.id
		WHERE d.user_id = $1
		GROUP BY d.id
		ORDER BY d.name ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	decks := make([]models.Deck, 0)
	for rows.Next() {
		var d models.Deck
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt, &d.CardCount); err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

func (r *DeckRepo) Update(ctx context.Context, d *models.Deck) error {
	query := `UPDATE decks SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4 RETURNING updated_at`

	return r.pool.QueryRow(ctx, query, d.Name, d.Description, d.ID, d.UserID).Scan(&d.UpdatedAt)
}

// Delete removes the deck and, through the foreign key, its cards.
func (r *DeckRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM decks WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
