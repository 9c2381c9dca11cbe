// AngelaMos | 2026
// rating.go

package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saathi-labs/companion-api/internal/core"
)

type Rating struct {
	ID             int64     `db:"id"`
	UserID         string    `db:"user_id"`
	CharacterID    int64     `db:"character_id"`
	ConversationID *int64    `db:"conversation_id"`
	Stars          int       `db:"rating"`
	CreatedAt      time.Time `db:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, r *Rating) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rt *Rating) error {
	query := `
		INSERT INTO ratings (user_id, character_id, conversation_id, rating)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		rt.UserID,
		rt.CharacterID,
		rt.ConversationID,
		rt.Stars,
	).Scan(&rt.ID, &rt.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("create rating: unknown %s: %w", pgErr.ConstraintName, core.ErrInvalidInput)
		}
		return fmt.Errorf("create rating: %w", err)
	}

	return nil
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Rate(
	ctx context.Context,
	userID string,
	characterID int64,
	conversationID *int64,
	stars int,
) (*Rating, error) {
	if characterID <= 0 || stars < 1 || stars > 5 {
		return nil, fmt.Errorf("rate character: %w", core.ErrInvalidInput)
	}

	rt := &Rating{
		UserID:         userID,
		CharacterID:    characterID,
		ConversationID: conversationID,
		Stars:          stars,
	}
	if err := s.repo.Create(ctx, rt); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "character rated",
		"character_id", characterID,
		"rating", stars,
	)
	return rt, nil
}
