// AngelaMos | 2026
// chat_test.go

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saathi-labs/companion-api/internal/character"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/language"
	"github.com/saathi-labs/companion-api/internal/llm"
	"github.com/saathi-labs/companion-api/internal/middleware"
)

const (
	alice = "11111111-1111-1111-1111-111111111111"
	bob   = "22222222-2222-2222-2222-222222222222"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type memoryRepo struct {
	mu       sync.Mutex
	convs    map[int64]*Conversation
	messages map[int64][]Message
	nextConv int64
	nextMsg  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		convs:    map[int64]*Conversation{},
		messages: map[int64][]Message{},
	}
}

func (m *memoryRepo) CreateConversation(_ context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextConv++
	conv.ID = m.nextConv
	conv.IsActive = true
	conv.CreatedAt = time.Now()
	cp := *conv
	m.convs[conv.ID] = &cp
	return nil
}

func (m *memoryRepo) GetConversation(_ context.Context, id int64) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, fmt.Errorf("get conversation: %w", core.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *memoryRepo) AddMessages(_ context.Context, id int64, msgs ...*Message) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return 0, fmt.Errorf("add messages: %w", core.ErrNotFound)
	}
	for _, msg := range msgs {
		m.nextMsg++
		msg.ID = m.nextMsg
		msg.ConversationID = id
		msg.CreatedAt = time.Now()
		m.messages[id] = append(m.messages[id], *msg)
	}
	c.MessageCount += len(msgs)
	return c.MessageCount, nil
}

func (m *memoryRepo) RecentMessages(_ context.Context, id int64, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[id]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]Message(nil), all...), nil
}

func (m *memoryRepo) EndConversation(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return core.ErrNotFound
	}
	now := time.Now()
	c.IsActive = false
	c.EndedAt = &now
	return nil
}

type memoryLedger struct {
	mu       sync.Mutex
	balances map[string]int
}

func (l *memoryLedger) Balance(_ context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *memoryLedger) Debit(_ context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[userID] <= 0 {
		return 0, core.ErrInsufficientCoins
	}
	l.balances[userID]--
	return l.balances[userID], nil
}

type staticCharacters struct{}

var priya = &character.Character{
	ID:           1,
	Key:          "priya",
	Name:         "Priya",
	SystemPrompt: "You are Priya.",
	IsActive:     true,
}

func (staticCharacters) GetByKey(_ context.Context, key string) (*character.Character, error) {
	if key == priya.Key {
		return priya, nil
	}
	return nil, core.ErrNotFound
}

func (staticCharacters) GetByID(_ context.Context, id int64) (*character.Character, error) {
	if id == priya.ID {
		return priya, nil
	}
	return nil, core.ErrNotFound
}

type fixture struct {
	svc       *Service
	repo      *memoryRepo
	ledger    *memoryLedger
	completer *mockCompleter
}

func newFixture(balance int) *fixture {
	repo := newMemoryRepo()
	ledger := &memoryLedger{balances: map[string]int{alice: balance, bob: 5}}
	completer := &mockCompleter{}
	svc := NewService(ServiceConfig{
		Repo:       repo,
		Characters: staticCharacters{},
		Ledger:     ledger,
		Completer:  completer,
	})
	return &fixture{svc: svc, repo: repo, ledger: ledger, completer: completer}
}

func (f *fixture) start(t *testing.T, userID string) int64 {
	t.Helper()
	res, err := f.svc.Start(context.Background(), userID, "priya", language.English)
	require.NoError(t, err)
	return res.Conversation.ID
}

func TestStartAlwaysFresh(t *testing.T) {
	f := newFixture(5)
	ctx := context.Background()

	first := f.start(t, alice)
	f.completer.On("Complete", mock.Anything, mock.Anything).Return("hi!", nil)
	_, err := f.svc.Message(ctx, alice, first, "hello", language.English)
	require.NoError(t, err)

	res, err := f.svc.Start(ctx, alice, "priya", language.Hinglish)
	require.NoError(t, err)
	assert.NotEqual(t, first, res.Conversation.ID)
	assert.Zero(t, res.Conversation.MessageCount)
	assert.Equal(t, language.Hinglish, res.Conversation.Language)

	_, err = f.svc.Start(ctx, alice, "nobody", language.English)
	assert.ErrorIs(t, err, ErrCharacterNotFound)
}

func TestMessageDebitsAfterReply(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()
	conv := f.start(t, alice)

	f.completer.On("Complete", mock.Anything, mock.Anything).Return("I missed you!", nil).Once()

	res, err := f.svc.Message(ctx, alice, conv, "hello", language.English)
	require.NoError(t, err)
	assert.Equal(t, "hello", res.UserMessage.Content)
	assert.Equal(t, SenderUser, res.UserMessage.Sender)
	assert.Equal(t, "I missed you!", res.AIMessage.Content)
	assert.Equal(t, SenderAssistant, res.AIMessage.Sender)
	assert.Zero(t, res.UserCoins)
	assert.Equal(t, 2, res.MessageCount)

	_, err = f.svc.Message(ctx, alice, conv, "again", language.English)
	assert.ErrorIs(t, err, core.ErrInsufficientCoins)

	f.completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestZeroBalanceNeverCallsCompleter(t *testing.T) {
	f := newFixture(0)
	conv := f.start(t, alice)

	_, err := f.svc.Message(context.Background(), alice, conv, "hello", language.English)
	assert.ErrorIs(t, err, core.ErrInsufficientCoins)

	f.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	assert.Empty(t, f.repo.messages[conv])
}

func TestBalanceDropsByOnePerMessage(t *testing.T) {
	const initial, sent = 5, 3
	f := newFixture(initial)
	conv := f.start(t, alice)
	f.completer.On("Complete", mock.Anything, mock.Anything).Return("ok", nil)

	for i := range sent {
		res, err := f.svc.Message(context.Background(), alice, conv, fmt.Sprintf("msg %d", i), language.English)
		require.NoError(t, err)
		assert.Equal(t, initial-i-1, res.UserCoins)
	}

	balance, err := f.ledger.Balance(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, initial-sent, balance)
}

func TestCompletionFailureDoesNotDebit(t *testing.T) {
	f := newFixture(3)
	conv := f.start(t, alice)
	f.completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	_, err := f.svc.Message(context.Background(), alice, conv, "hello", language.English)
	assert.ErrorIs(t, err, core.ErrUpstream)

	balance, _ := f.ledger.Balance(context.Background(), alice)
	assert.Equal(t, 3, balance)
}

func TestHistoryWindow(t *testing.T) {
	f := newFixture(100)
	ctx := context.Background()
	conv := f.start(t, alice)

	for i := range 10 {
		_, err := f.repo.AddMessages(ctx, conv,
			&Message{Content: fmt.Sprintf("u%d", i), Sender: SenderUser},
			&Message{Content: fmt.Sprintf("a%d", i), Sender: SenderAssistant},
		)
		require.NoError(t, err)
	}

	var captured llm.Request
	f.completer.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(llm.Request) }).
		Return("reply", nil)

	_, err := f.svc.Message(ctx, alice, conv, "latest", language.Hindi)
	require.NoError(t, err)

	require.Len(t, captured.History, DefaultHistoryWindow)
	assert.Equal(t, "a2", captured.History[0].Content)
	assert.Equal(t, llm.RoleAssistant, captured.History[0].Role)
	assert.Equal(t, "a9", captured.History[len(captured.History)-1].Content)
	assert.Equal(t, "latest", captured.Message)
	assert.Contains(t, captured.System, "You are Priya")
	assert.Contains(t, captured.System, language.Instruction(language.Hindi))
}

func TestConversationOwnership(t *testing.T) {
	f := newFixture(5)
	ctx := context.Background()
	conv := f.start(t, bob)

	_, err := f.svc.Message(ctx, alice, conv, "hi", language.English)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	assert.ErrorIs(t, f.svc.End(ctx, alice, conv), ErrConversationNotFound)
	assert.ErrorIs(t, f.svc.End(ctx, alice, 999), ErrConversationNotFound)

	require.NoError(t, f.svc.End(ctx, bob, conv))
	assert.False(t, f.repo.convs[conv].IsActive)
	assert.NotNil(t, f.repo.convs[conv].EndedAt)
}

func TestBuildSystemPrompt(t *testing.T) {
	text := BuildSystemPrompt(priya, language.Chinese, false)
	assert.True(t, strings.HasPrefix(text, "You are Priya"))
	assert.Contains(t, text, language.Instruction(language.Chinese))
	assert.NotContains(t, text, voiceGuidelines)

	voice := BuildSystemPrompt(priya, language.English, true)
	assert.Contains(t, voice, voiceGuidelines)
}

type stubAuth struct{ userID string }

func (s stubAuth) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.IdentityKey, &middleware.Identity{UserID: s.userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func serve(t *testing.T, f *fixture, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r, stubAuth{userID: alice}.middleware, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestHandlerStartReturnsNoMessages(t *testing.T) {
	f := newFixture(5)
	rec := serve(t, f, "/chat/start", `{"characterKey":"priya","language":"hinglish"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data StartResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotNil(t, body.Data.Messages)
	assert.Empty(t, body.Data.Messages)
	assert.Equal(t, "priya", body.Data.Character.Key)
	assert.Equal(t, "hinglish", body.Data.Conversation.Language)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)
}

func TestHandlerNeedsCoins(t *testing.T) {
	f := newFixture(0)
	conv := f.start(t, alice)

	rec := serve(t, f, "/chat/message", fmt.Sprintf(`{"conversationId":%d,"content":"hi"}`, conv))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["needsCoins"])
	assert.Equal(t, insufficientCoinsMessage, body["message"])
}

func TestHandlerCompletionFailure(t *testing.T) {
	f := newFixture(2)
	conv := f.start(t, alice)
	f.completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("boom"))

	rec := serve(t, f, "/chat/message", fmt.Sprintf(`{"conversationId":%d,"content":"hi"}`, conv))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestHandlerValidation(t *testing.T) {
	f := newFixture(2)

	rec := serve(t, f, "/chat/message", `{"conversationId":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, f, "/chat/start", `{"characterKey":"priya","language":"klingon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, f, "/chat/end", `{"conversationId":42}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
