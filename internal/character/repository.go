// AngelaMos | 2026
// repository.go

package character

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saathi-labs/companion-api/internal/core"
)

type Repository interface {
	ListActive(ctx context.Context) ([]Character, error)
	Count(ctx context.Context) (int, error)
	GetByKey(ctx context.Context, key string) (*Character, error)
	GetByID(ctx context.Context, id int64) (*Character, error)
	Create(ctx context.Context, c *Character) error
	Update(ctx context.Context, id int64, patch Patch) (*Character, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const characterColumns = `id, key, name, avatar, intro, welcome_message,
		       personality, system_prompt, is_active, created_at`

func (r *repository) ListActive(ctx context.Context) ([]Character, error) {
	query := `SELECT ` + characterColumns + `
		FROM characters
		WHERE is_active = TRUE
		ORDER BY id`

	var characters []Character
	if err := r.db.SelectContext(ctx, &characters, query); err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}

	return characters, nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM characters`); err != nil {
		return 0, fmt.Errorf("count characters: %w", err)
	}
	return n, nil
}

func (r *repository) GetByKey(ctx context.Context, key string) (*Character, error) {
	query := `SELECT ` + characterColumns + ` FROM characters WHERE key = $1`

	var c Character
	err := r.db.GetContext(ctx, &c, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get character %q: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get character %q: %w", key, err)
	}

	return &c, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Character, error) {
	query := `SELECT ` + characterColumns + ` FROM characters WHERE id = $1`

	var c Character
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get character %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get character %d: %w", id, err)
	}

	return &c, nil
}

func (r *repository) Create(ctx context.Context, c *Character) error {
	query := `
		INSERT INTO characters (key, name, avatar, intro, welcome_message,
		                        personality, system_prompt, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		c.Key,
		c.Name,
		c.Avatar,
		c.Intro,
		c.WelcomeMessage,
		c.Personality,
		c.SystemPrompt,
		c.IsActive,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create character: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create character: %w", err)
	}

	return nil
}

func (r *repository) Update(
	ctx context.Context,
	id int64,
	patch Patch,
) (*Character, error) {
	query := `
		UPDATE characters SET
			name            = COALESCE($2, name),
			avatar          = COALESCE($3, avatar),
			intro           = COALESCE($4, intro),
			welcome_message = COALESCE($5, welcome_message),
			personality     = COALESCE($6, personality),
			system_prompt   = COALESCE($7, system_prompt),
			is_active       = COALESCE($8, is_active)
		WHERE id = $1
		RETURNING ` + characterColumns

	var c Character
	err := r.db.GetContext(ctx, &c, query,
		id,
		patch.Name,
		patch.Avatar,
		patch.Intro,
		patch.WelcomeMessage,
		patch.Personality,
		patch.SystemPrompt,
		patch.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update character %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update character %d: %w", id, err)
	}

	return &c, nil
}
