// AngelaMos | 2026
// auth_test.go

package auth

import (
	"context"
	"encoding/base64"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saathi-labs/companion-api/internal/config"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/middleware"
)

const testUserID = "8a1f3a44-6c0e-4d8b-9d7e-2b1f0c9a7e11"

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[string]*UserInfo
	logins int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*UserInfo{}}
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, username, hash string, terms bool) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			return nil, core.ErrDuplicateKey
		}
	}
	u := &UserInfo{
		ID:            testUserID,
		Username:      username,
		PasswordHash:  hash,
		Coins:         5,
		TermsAccepted: terms,
		CreatedAt:     time.Now(),
	}
	f.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdateLastLogin(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].PasswordHash = hash
	return nil
}

type fakeSessions struct {
	mu    sync.Mutex
	store map[string]*Session
	seq   int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{store: map[string]*Session{}}
}

func (f *fakeSessions) Create(_ context.Context, sess *Session) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	sess.ID = "sess-" + string(rune('a'+f.seq))
	cp := *sess
	f.store[sess.ID] = &cp
	return "cookie:" + sess.ID, nil
}

func (f *fakeSessions) Load(_ context.Context, cookie string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := cookie[len("cookie:"):]
	if s, ok := f.store[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, core.ErrSessionInvalid
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.store, id)
	return nil
}

func TestTokenRoundTrip(t *testing.T) {
	issued := time.UnixMilli(1735689600123)
	tok := EncodeToken(testUserID, "rahul", issued)

	raw, err := base64.StdEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID+":rahul:1735689600123", string(raw))

	ct, err := DecodeToken(tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID, ct.UserID)
	assert.Equal(t, "rahul", ct.Username)
	assert.True(t, ct.IssuedAt.Equal(issued))
}

func TestDecodeTokenRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"!!!not-base64!!!",
		base64.StdEncoding.EncodeToString([]byte("only-two:parts")),
		base64.StdEncoding.EncodeToString([]byte("id:name:notanumber")),
		base64.StdEncoding.EncodeToString([]byte(":name:123")),
		base64.StdEncoding.EncodeToString([]byte("a:b:c:123")),
	}

	for _, c := range cases {
		_, err := DecodeToken(c)
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", c)
	}
}

func TestSessionCookieSignature(t *testing.T) {
	store := NewSessionStore(nil, config.SessionConfig{
		Secret: "0123456789abcdef0123456789abcdef",
		TTL:    time.Hour,
	}, "companion-api")

	signed, err := store.sign("session-123")
	require.NoError(t, err)

	id, err := store.verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "session-123", id)

	other := NewSessionStore(nil, config.SessionConfig{
		Secret: "ffffffffffffffffffffffffffffffff",
		TTL:    time.Hour,
	}, "companion-api")
	_, err = other.verify(signed)
	assert.ErrorIs(t, err, core.ErrSessionInvalid)

	_, err = store.verify(signed + "x")
	assert.ErrorIs(t, err, core.ErrSessionInvalid)

	_, err = store.verify("")
	assert.ErrorIs(t, err, core.ErrSessionInvalid)
}

func TestSessionCookieExpired(t *testing.T) {
	store := NewSessionStore(nil, config.SessionConfig{
		Secret: "0123456789abcdef0123456789abcdef",
		TTL:    -time.Hour,
	}, "companion-api")

	signed, err := store.sign("session-123")
	require.NoError(t, err)

	_, err = store.verify(signed)
	assert.ErrorIs(t, err, core.ErrSessionInvalid)
}

func TestCookieWriter(t *testing.T) {
	cw := NewCookieWriter(config.SessionConfig{CookieName: "sid", TTL: time.Hour, Secure: true})

	rec := httptest.NewRecorder()
	cw.Set(rec, "value")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, "value", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	rec = httptest.NewRecorder()
	cw.Clear(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}

func newTestService() (*Service, *fakeUsers, *fakeSessions) {
	users := newFakeUsers()
	sessions := newFakeSessions()
	return NewService(users, sessions, nil), users, sessions
}

func TestRegisterRequiresTerms(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "rahul",
		Password: "secret123",
	}, "")
	assert.ErrorIs(t, err, ErrTermsRequired)
}

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	svc, users, sessions := newTestService()

	reg, err := svc.Register(ctx, RegisterRequest{
		Username:      "rahul",
		Password:      "secret123",
		TermsAccepted: true,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "rahul", reg.User.Username)
	assert.Equal(t, 5, reg.User.Coins)
	assert.NotEmpty(t, reg.Cookie)

	ct, err := DecodeToken(reg.AuthToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, ct.UserID)

	_, err = svc.Register(ctx, RegisterRequest{
		Username:      "rahul",
		Password:      "another1",
		TermsAccepted: true,
	}, "")
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = svc.Login(ctx, LoginRequest{Username: "rahul", Password: "wrong-pass"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Username: "nobody", Password: "secret123"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	firstSession, err := sessions.Load(ctx, reg.Cookie)
	require.NoError(t, err)

	login, err := svc.Login(ctx, LoginRequest{Username: "rahul", Password: "secret123"}, firstSession.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, users.logins)

	_, err = sessions.Load(ctx, reg.Cookie)
	assert.ErrorIs(t, err, core.ErrSessionInvalid, "previous session is dropped on login")

	id, err := svc.ResolveSession(ctx, login.Cookie)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, id.UserID)
	assert.Equal(t, middleware.AuthViaSession, id.Via)
}

func TestResolveToken(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newTestService()
	users.byID[testUserID] = &UserInfo{ID: testUserID, Username: "rahul"}

	id, err := svc.ResolveToken(ctx, EncodeToken(testUserID, "rahul", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, testUserID, id.UserID)
	assert.Equal(t, middleware.AuthViaToken, id.Via)

	_, err = svc.ResolveToken(ctx, EncodeToken(testUserID, "impostor", time.Now()))
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = svc.ResolveToken(ctx, EncodeToken("00000000-0000-0000-0000-000000000000", "rahul", time.Now()))
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = svc.ResolveToken(ctx, "garbage")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestElevateAdminKeepsUser(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newTestService()
	users.byID[testUserID] = &UserInfo{ID: testUserID, Username: "rahul"}

	cookie, err := svc.ElevateAdmin(ctx, &middleware.Identity{UserID: testUserID})
	require.NoError(t, err)

	id, err := svc.ResolveSession(ctx, cookie)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin)
	assert.Equal(t, testUserID, id.UserID)

	anon, err := svc.ElevateAdmin(ctx, nil)
	require.NoError(t, err)

	id, err = svc.ResolveSession(ctx, anon)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin)
	assert.Empty(t, id.UserID)

	require.NoError(t, svc.Logout(ctx, id.SessionID))
	_, err = svc.ResolveSession(ctx, anon)
	assert.ErrorIs(t, err, core.ErrSessionInvalid)
}
