// AngelaMos | 2026
// service.go

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/saathi-labs/companion-api/internal/character"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/language"
	"github.com/saathi-labs/companion-api/internal/llm"
	"github.com/saathi-labs/companion-api/internal/metrics"
)

// DefaultHistoryWindow is how many prior messages accompany a completion.
const DefaultHistoryWindow = 15

var (
	ErrConversationNotFound = fmt.Errorf("conversation: %w", core.ErrNotFound)
	ErrCharacterNotFound    = fmt.Errorf("character: %w", core.ErrNotFound)
)

// Ledger is the slice of the coin ledger a conversation needs.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Debit(ctx context.Context, userID string) (int, error)
}

type Characters interface {
	GetByKey(ctx context.Context, key string) (*character.Character, error)
	GetByID(ctx context.Context, id int64) (*character.Character, error)
}

type Service struct {
	repo       Repository
	characters Characters
	ledger     Ledger
	completer  llm.Completer
	window     int
	logger     *slog.Logger
}

type ServiceConfig struct {
	Repo          Repository
	Characters    Characters
	Ledger        Ledger
	Completer     llm.Completer
	HistoryWindow int
	Logger        *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	window := cfg.HistoryWindow
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       cfg.Repo,
		characters: cfg.Characters,
		ledger:     cfg.Ledger,
		completer:  cfg.Completer,
		window:     window,
		logger:     logger,
	}
}

type StartResult struct {
	Conversation *Conversation
	Character    *character.Character
}

// Start always opens a new conversation. Earlier conversations with the
// same character are never resumed.
func (s *Service) Start(
	ctx context.Context,
	userID, characterKey string,
	lang language.Language,
) (*StartResult, error) {
	c, err := s.characters.GetByKey(ctx, characterKey)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("start chat: %w", err)
	}

	conv := &Conversation{
		UserID:      userID,
		CharacterID: c.ID,
		Language:    lang,
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("start chat: %w", err)
	}

	s.logger.InfoContext(ctx, "conversation started",
		"conversation_id", conv.ID,
		"character", c.Key,
		"user_id", userID,
	)

	return &StartResult{Conversation: conv, Character: c}, nil
}

// Exchange is a conversation that passed the ownership, character and
// balance checks and may take one paid message.
type Exchange struct {
	UserID       string
	Conversation *Conversation
	Character    *character.Character
	Balance      int
}

// Open runs the checks every paid message goes through. It fails with
// core.ErrInsufficientCoins before any external service is touched.
func (s *Service) Open(
	ctx context.Context,
	userID string,
	conversationID int64,
) (*Exchange, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("open conversation: %w", err)
	}
	if conv.UserID != userID {
		return nil, ErrConversationNotFound
	}

	c, err := s.characters.GetByID(ctx, conv.CharacterID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("open conversation: %w", err)
	}

	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}
	if balance <= 0 {
		return nil, fmt.Errorf("open conversation: %w", core.ErrInsufficientCoins)
	}

	return &Exchange{
		UserID:       userID,
		Conversation: conv,
		Character:    c,
		Balance:      balance,
	}, nil
}

// History returns the trailing window of the conversation as model turns.
func (s *Service) History(ctx context.Context, conversationID int64) ([]llm.Turn, error) {
	msgs, err := s.repo.RecentMessages(ctx, conversationID, s.window)
	if err != nil {
		return nil, err
	}
	return toTurns(msgs), nil
}

// Generate asks the model for the companion's reply. Provider failures come
// back wrapped in core.ErrUpstream.
func (s *Service) Generate(
	ctx context.Context,
	ex *Exchange,
	history []llm.Turn,
	content string,
	lang language.Language,
	voice bool,
) (string, error) {
	ctx, span := core.StartSpan(ctx, "chat.generate",
		attribute.Int64("conversation.id", ex.Conversation.ID),
		attribute.String("language", lang.String()),
		attribute.Bool("voice", voice),
	)
	defer span.End()

	reply, err := s.completer.Complete(ctx, llm.Request{
		System:  BuildSystemPrompt(ex.Character, lang, voice),
		History: history,
		Message: content,
	})
	if err != nil {
		core.SetSpanError(span, err)
		s.logger.ErrorContext(ctx, "completion failed",
			"conversation_id", ex.Conversation.ID,
			"error", err,
		)
		return "", errors.Join(core.ErrUpstream, fmt.Errorf("generate reply: %w", err))
	}

	return reply, nil
}

// Charge takes the message fee. A balance that reached zero since Open
// surfaces as core.ErrInsufficientCoins.
func (s *Service) Charge(ctx context.Context, ex *Exchange) (int, error) {
	coins, err := s.ledger.Debit(ctx, ex.UserID)
	if err != nil {
		return 0, fmt.Errorf("charge message: %w", err)
	}
	return coins, nil
}

// Record persists a finished user/assistant pair and returns the updated
// message count.
func (s *Service) Record(
	ctx context.Context,
	ex *Exchange,
	userMsg, aiMsg *Message,
) (int, error) {
	count, err := s.repo.AddMessages(ctx, ex.Conversation.ID, userMsg, aiMsg)
	if err != nil {
		return 0, err
	}
	ex.Conversation.MessageCount = count
	return count, nil
}

type MessageResult struct {
	UserMessage  *Message
	AIMessage    *Message
	UserCoins    int
	MessageCount int
}

// Message handles one text message: checks, user message persisted, reply
// generated and persisted, then one coin debited.
func (s *Service) Message(
	ctx context.Context,
	userID string,
	conversationID int64,
	content string,
	lang language.Language,
) (_ *MessageResult, err error) {
	defer func() {
		metrics.MessagesTotal.WithLabelValues("text", Outcome(err)).Inc()
	}()

	ex, err := s.Open(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	history, err := s.History(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("chat message: %w", err)
	}

	userMsg := &Message{Content: content, Sender: SenderUser, Language: lang}
	if _, err := s.repo.AddMessages(ctx, conversationID, userMsg); err != nil {
		return nil, fmt.Errorf("chat message: %w", err)
	}

	reply, err := s.Generate(ctx, ex, history, content, lang, false)
	if err != nil {
		return nil, err
	}

	aiMsg := &Message{Content: reply, Sender: SenderAssistant, Language: lang}
	count, err := s.repo.AddMessages(ctx, conversationID, aiMsg)
	if err != nil {
		return nil, fmt.Errorf("chat message: %w", err)
	}

	coins, err := s.Charge(ctx, ex)
	if err != nil {
		return nil, err
	}

	return &MessageResult{
		UserMessage:  userMsg,
		AIMessage:    aiMsg,
		UserCoins:    coins,
		MessageCount: count,
	}, nil
}

func (s *Service) End(ctx context.Context, userID string, conversationID int64) error {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("end chat: %w", err)
	}
	if conv.UserID != userID {
		return ErrConversationNotFound
	}

	if err := s.repo.EndConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("end chat: %w", err)
	}

	s.logger.InfoContext(ctx, "conversation ended",
		"conversation_id", conversationID,
		"message_count", conv.MessageCount,
	)
	return nil
}

// Outcome labels err for the messages metric.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrInsufficientCoins):
		return "no_coins"
	case errors.Is(err, core.ErrUpstream):
		return "upstream_error"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
