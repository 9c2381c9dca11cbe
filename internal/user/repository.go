// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saathi-labs/companion-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateLastLogin(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ListDetailed(ctx context.Context) ([]Detail, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const userColumns = `id, username, password_hash, coins, terms_accepted,
		       terms_accepted_at, last_login_at, created_at, last_active`

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, password_hash, coins, terms_accepted, terms_accepted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, last_active`

	err := r.db.QueryRowxContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Coins,
		user.TermsAccepted,
		user.TermsAcceptedAt,
	).Scan(&user.CreatedAt, &user.LastActive)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		if isInvalidTextError(err) {
			return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) GetByUsername(
	ctx context.Context,
	username string,
) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by username: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	return &user, nil
}

func (r *repository) UpdateLastLogin(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET last_login_at = NOW(), last_active = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update last login: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ListDetailed(ctx context.Context) ([]Detail, error) {
	query := `
		SELECT u.id, u.username, u.password_hash, u.coins, u.terms_accepted,
		       u.terms_accepted_at, u.last_login_at, u.created_at, u.last_active,
		       COALESCE(c.total_messages, 0) AS total_messages,
		       COALESCE(p.payment_count, 0)  AS payment_count
		FROM users u
		LEFT JOIN (
			SELECT user_id, SUM(message_count) AS total_messages
			FROM conversations
			GROUP BY user_id
		) c ON c.user_id = u.id
		LEFT JOIN (
			SELECT user_id, COUNT(*) AS payment_count
			FROM payments
			GROUP BY user_id
		) p ON p.user_id = u.id
		ORDER BY u.created_at DESC`

	var users []Detail
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// isInvalidTextError reports a malformed UUID literal, which for lookups
// by id means the row cannot exist.
func isInvalidTextError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22P02"
	}
	return false
}
