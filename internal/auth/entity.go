// AngelaMos | 2026
// entity.go

package auth

import (
	"context"
	"time"
)

type UserInfo struct {
	ID            string
	Username      string
	PasswordHash  string
	Coins         int
	TermsAccepted bool
	CreatedAt     time.Time
}

type UserProvider interface {
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	GetByUsername(ctx context.Context, username string) (*UserInfo, error)
	Create(
		ctx context.Context,
		username, passwordHash string,
		termsAccepted bool,
	) (*UserInfo, error)
	UpdateLastLogin(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// SessionBackend is the subset of SessionStore the service needs.
type SessionBackend interface {
	Create(ctx context.Context, sess *Session) (string, error)
	Load(ctx context.Context, cookieValue string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
