package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashdeck-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, avatar_url, auth_provider, google_id, is_active, created_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.AvatarURL,
		&u.AuthProvider, &u.GoogleID, &u.IsActive, &u.CreatedAt, &u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, avatar_url, auth_provider, google_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING is_active, created_at`

	user.ID = uuid.New()
	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.AvatarURL, user.AuthProvider, user.GoogleID,
	).Scan(&user.IsActive, &user.CreatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
}

func (r *UserRepo) LinkGoogle(ctx context.Context, userID uuid.UUID, googleID string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET google_id = $1 WHERE id = $2", googleID, userID)
	return err
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}
