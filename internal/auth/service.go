// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameExists     = errors.New("username already exists")
	ErrTermsRequired      = errors.New("terms must be accepted")
)

type Service struct {
	users    UserProvider
	sessions SessionBackend
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(
	users UserProvider,
	sessions SessionBackend,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:    users,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	previousSessionID string,
) (*AuthResult, error) {
	if !req.TermsAccepted {
		return nil, ErrTermsRequired
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req.Username, passwordHash, true)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
	)

	return s.issue(ctx, user, previousSessionID)
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	previousSessionID string,
) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.BurnPasswordCheck(req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.users.UpdatePassword(ctx, user.ID, newHash)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login",
			"user_id", user.ID,
			"error", err,
		)
	}

	return s.issue(ctx, user, previousSessionID)
}

// Logout drops the server session. Client tokens are not revocable.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// ElevateAdmin replaces the caller's session with one carrying the admin
// flag, keeping any user it already had. It returns the new cookie value.
func (s *Service) ElevateAdmin(
	ctx context.Context,
	current *middleware.Identity,
) (string, error) {
	sess := &Session{IsAdmin: true}
	if current != nil {
		sess.UserID = current.UserID
		//nolint:errcheck // old session expires on its own
		_ = s.sessions.Delete(ctx, current.SessionID)
	}

	cookie, err := s.sessions.Create(ctx, sess)
	if err != nil {
		return "", fmt.Errorf("create admin session: %w", err)
	}

	return cookie, nil
}

// ResolveSession implements middleware.IdentityResolver.
func (s *Service) ResolveSession(
	ctx context.Context,
	cookieValue string,
) (*middleware.Identity, error) {
	sess, err := s.sessions.Load(ctx, cookieValue)
	if err != nil {
		return nil, err
	}

	id := &middleware.Identity{
		SessionID: sess.ID,
		IsAdmin:   sess.IsAdmin,
		Via:       middleware.AuthViaSession,
	}

	if sess.UserID == "" {
		return id, nil
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return id, nil
		}
		return nil, fmt.Errorf("resolve session user: %w", err)
	}

	id.UserID = user.ID
	id.Username = user.Username
	return id, nil
}

// ResolveToken implements middleware.IdentityResolver. The token is only
// checked for a matching username; it has no signature or expiry.
func (s *Service) ResolveToken(
	ctx context.Context,
	token string,
) (*middleware.Identity, error) {
	ct, err := DecodeToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUnauthorized, err)
	}

	user, err := s.users.GetByID(ctx, ct.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("resolve token: %w", core.ErrUnauthorized)
		}
		return nil, fmt.Errorf("resolve token: %w", err)
	}

	if !core.SecureCompare(user.Username, ct.Username) {
		return nil, fmt.Errorf("resolve token: username mismatch: %w", core.ErrUnauthorized)
	}

	return &middleware.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Via:      middleware.AuthViaToken,
	}, nil
}

func (s *Service) issue(
	ctx context.Context,
	user *UserInfo,
	previousSessionID string,
) (*AuthResult, error) {
	if previousSessionID != "" {
		//nolint:errcheck // old session expires on its own
		_ = s.sessions.Delete(ctx, previousSessionID)
	}

	cookie, err := s.sessions.Create(ctx, &Session{UserID: user.ID})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &AuthResult{
		AuthResponse: AuthResponse{
			User:      toUserResponse(user),
			AuthToken: EncodeToken(user.ID, user.Username, s.now()),
		},
		Cookie: cookie,
	}, nil
}

var _ middleware.IdentityResolver = (*Service)(nil)
