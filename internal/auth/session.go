// AngelaMos | 2026
// session.go

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/redis/go-redis/v9"

	"github.com/saathi-labs/companion-api/internal/config"
	"github.com/saathi-labs/companion-api/internal/core"
)

const sessionKeyPrefix = "session:"

type Session struct {
	ID        string    `json:"-"`
	UserID    string    `json:"user_id,omitempty"`
	IsAdmin   bool      `json:"is_admin,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore keeps server sessions in Redis and hands clients a signed
// cookie value that wraps the session id.
type SessionStore struct {
	redis  redis.Cmdable
	secret []byte
	cfg    config.SessionConfig
	issuer string
}

func NewSessionStore(
	rdb redis.Cmdable,
	cfg config.SessionConfig,
	issuer string,
) *SessionStore {
	return &SessionStore{
		redis:  rdb,
		secret: []byte(cfg.Secret),
		cfg:    cfg,
		issuer: issuer,
	}
}

func (s *SessionStore) TTL() time.Duration {
	return s.cfg.TTL
}

// Create stores a new session and returns its signed cookie value.
func (s *SessionStore) Create(ctx context.Context, sess *Session) (string, error) {
	sess.ID = uuid.New().String()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}

	if err := s.save(ctx, sess); err != nil {
		return "", err
	}

	return s.sign(sess.ID)
}

func (s *SessionStore) Update(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		return fmt.Errorf("update session: %w", core.ErrSessionInvalid)
	}
	return s.save(ctx, sess)
}

func (s *SessionStore) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.redis.Set(ctx, sessionKeyPrefix+sess.ID, data, s.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	return nil
}

// Load verifies a cookie value and returns the session it refers to.
func (s *SessionStore) Load(ctx context.Context, cookieValue string) (*Session, error) {
	id, err := s.verify(cookieValue)
	if err != nil {
		return nil, err
	}

	data, err := s.redis.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load session: %w", core.ErrSessionInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", core.ErrSessionInvalid)
	}
	sess.ID = id

	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.redis.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) sign(sessionID string) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		Issuer(s.issuer).
		Subject(sessionID).
		IssuedAt(now).
		Expiration(now.Add(s.cfg.TTL)).
		Build()
	if err != nil {
		return "", fmt.Errorf("build session token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), s.secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return string(signed), nil
}

func (s *SessionStore) verify(cookieValue string) (string, error) {
	if cookieValue == "" {
		return "", fmt.Errorf("verify session: %w", core.ErrSessionInvalid)
	}

	token, err := jwt.Parse(
		[]byte(cookieValue),
		jwt.WithKey(jwa.HS256(), s.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		return "", fmt.Errorf("verify session: %w", core.ErrSessionInvalid)
	}

	id, ok := token.Subject()
	if !ok || id == "" {
		return "", fmt.Errorf("verify session: missing subject: %w", core.ErrSessionInvalid)
	}

	return id, nil
}

// CookieWriter sets and clears the session cookie with the configured
// attributes.
type CookieWriter struct {
	cfg config.SessionConfig
}

func NewCookieWriter(cfg config.SessionConfig) *CookieWriter {
	return &CookieWriter{cfg: cfg}
}

func (c *CookieWriter) Name() string {
	return c.cfg.CookieName
}

func (c *CookieWriter) Set(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   c.cfg.Domain,
		MaxAge:   int(c.cfg.TTL / time.Second),
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *CookieWriter) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
