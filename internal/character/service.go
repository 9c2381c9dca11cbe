// AngelaMos | 2026
// service.go

package character

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/saathi-labs/companion-api/internal/core"
)

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

func (s *Service) List(ctx context.Context) ([]Character, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) GetByKey(ctx context.Context, key string) (*Character, error) {
	return s.repo.GetByKey(ctx, key)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Character, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Character, error) {
	c := req.toCharacter()
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "character created",
		"character_id", c.ID,
		"key", c.Key,
	)
	return c, nil
}

func (s *Service) Update(
	ctx context.Context,
	id int64,
	req UpdateRequest,
) (*Character, error) {
	c, err := s.repo.Update(ctx, id, req.toPatch())
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "character updated", "character_id", id)
	return c, nil
}

// SeedDefaults installs Defaults when the catalogue is empty. A populated
// catalogue is left alone even if it lacks some of the defaults.
func (s *Service) SeedDefaults(ctx context.Context) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed characters: %w", err)
	}
	if n > 0 {
		return nil
	}

	for i := range Defaults {
		c := Defaults[i]
		if err := s.repo.Create(ctx, &c); err != nil {
			if errors.Is(err, core.ErrDuplicateKey) {
				continue
			}
			return fmt.Errorf("seed character %q: %w", c.Key, err)
		}
	}

	s.logger.InfoContext(ctx, "default characters installed", "count", len(Defaults))
	return nil
}
