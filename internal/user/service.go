// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saathi-labs/companion-api/internal/auth"
	"github.com/saathi-labs/companion-api/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByUsername(
	ctx context.Context,
	username string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	username, passwordHash string,
	termsAccepted bool,
) (*auth.UserInfo, error) {
	user := &User{
		ID:            uuid.New().String(),
		Username:      username,
		PasswordHash:  passwordHash,
		Coins:         DefaultCoins,
		TermsAccepted: termsAccepted,
	}
	if termsAccepted {
		now := time.Now().UTC()
		user.TermsAcceptedAt = &now
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) UpdateLastLogin(ctx context.Context, userID string) error {
	return s.repo.UpdateLastLogin(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) ListDetailed(ctx context.Context) ([]Detail, error) {
	return s.repo.ListDetailed(ctx)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:            u.ID,
		Username:      u.Username,
		PasswordHash:  u.PasswordHash,
		Coins:         u.Coins,
		TermsAccepted: u.TermsAccepted,
		CreatedAt:     u.CreatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
