// AngelaMos | 2026
// auth.go

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/saathi-labs/companion-api/internal/core"
)

const (
	IdentityKey contextKey = "identity"
	SessionKey  contextKey = "session_identity"
)

const (
	AuthViaSession = "session"
	AuthViaToken   = "token"
)

type Identity struct {
	UserID    string
	Username  string
	SessionID string
	IsAdmin   bool
	Via       string
}

// IdentityResolver turns either a session cookie or a client token into an
// identity. Both return an error wrapping core.ErrUnauthorized or
// core.ErrSessionInvalid when the credential does not resolve.
type IdentityResolver interface {
	ResolveSession(ctx context.Context, cookieValue string) (*Identity, error)
	ResolveToken(ctx context.Context, token string) (*Identity, error)
}

// Authenticator admits a request when the session cookie resolves to a
// user, or failing that, when a client token does. The session is tried
// first.
func Authenticator(
	resolver IdentityResolver,
	cookieName string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sess := resolveSession(r, resolver, cookieName)
			if sess != nil {
				ctx = context.WithValue(ctx, SessionKey, sess)
				if sess.UserID != "" {
					ctx = context.WithValue(ctx, IdentityKey, sess)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			token, err := ExtractToken(r)
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				core.JSONError(w, core.NewAppError(
					err,
					"Request body too large",
					http.StatusRequestEntityTooLarge,
					"REQUEST_TOO_LARGE",
				))
				return
			}
			if token == "" {
				core.JSONError(w, core.AuthRequiredError())
				return
			}

			id, err := resolver.ResolveToken(ctx, token)
			if err != nil {
				slog.DebugContext(ctx, "token authentication failed",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				core.JSONError(w, core.AuthRequiredError())
				return
			}

			ctx = context.WithValue(ctx, IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession attaches the server session when one resolves and never
// rejects the request.
func OptionalSession(
	resolver IdentityResolver,
	cookieName string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess := resolveSession(r, resolver, cookieName); sess != nil {
				ctx := context.WithValue(r.Context(), SessionKey, sess)
				if sess.UserID != "" {
					ctx = context.WithValue(ctx, IdentityKey, sess)
				}
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminHost rejects requests whose Host is not allow-listed for the admin
// surface.
func AdminHost(allowed func(host string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(r.Host) {
				slog.WarnContext(r.Context(), "admin access from disallowed host",
					"host", r.Host,
					"request_id", GetRequestID(r.Context()),
				)
				core.JSONError(w, core.ForbiddenError("Access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin needs OptionalSession (or Authenticator) earlier in the
// chain.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdminSession(r.Context()) {
			core.JSONError(w, core.UnauthorizedError("Admin authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func resolveSession(
	r *http.Request,
	resolver IdentityResolver,
	cookieName string,
) *Identity {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return nil
	}

	id, err := resolver.ResolveSession(r.Context(), c.Value)
	if err != nil {
		slog.DebugContext(r.Context(), "session did not resolve",
			"error", err,
			"request_id", GetRequestID(r.Context()),
		)
		return nil
	}
	return id
}

// ExtractToken looks for a client token in Authorization (with or without
// a Bearer prefix), then X-Auth-Token, then a JSON body field authToken.
// A consumed body is restored so handlers can decode it again. The body is
// bounded only by the server's request size cap (server.max_body_bytes), so
// any request the server admits can carry its token in the body. The error
// is the body read failure, if any.
func ExtractToken(r *http.Request) (string, error) {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			h = strings.TrimSpace(h[7:])
		}
		if h != "" {
			return h, nil
		}
	}

	if h := strings.TrimSpace(r.Header.Get("X-Auth-Token")); h != "" {
		return h, nil
	}

	return tokenFromBody(r)
}

func tokenFromBody(r *http.Request) (string, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return "", nil
	}

	raw, err := io.ReadAll(r.Body)
	_ = r.Body.Close() //nolint:errcheck
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}

	var body struct {
		AuthToken string `json:"authToken"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", nil
	}

	return strings.TrimSpace(body.AuthToken), nil
}

func GetIdentity(ctx context.Context) *Identity {
	if id, ok := ctx.Value(IdentityKey).(*Identity); ok {
		return id
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if id := GetIdentity(ctx); id != nil {
		return id.UserID
	}
	return ""
}

// GetSession returns the server session, which may exist without a user
// when only the admin flag is set.
func GetSession(ctx context.Context) *Identity {
	if id, ok := ctx.Value(SessionKey).(*Identity); ok {
		return id
	}
	return nil
}

func GetSessionID(ctx context.Context) string {
	if s := GetSession(ctx); s != nil {
		return s.SessionID
	}
	return ""
}

func IsAdminSession(ctx context.Context) bool {
	s := GetSession(ctx)
	return s != nil && s.IsAdmin
}
