// AngelaMos | 2026
// service.go

package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/saathi-labs/companion-api/internal/chat"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/language"
	"github.com/saathi-labs/companion-api/internal/llm"
	"github.com/saathi-labs/companion-api/internal/metrics"
	"github.com/saathi-labs/companion-api/internal/speech"
)

// DefaultMinAudioBytes is the smallest clip worth sending for transcription.
const DefaultMinAudioBytes = 1024

var (
	ErrAudioMissing     = fmt.Errorf("audio data is required: %w", core.ErrInvalidInput)
	ErrAudioMalformed   = fmt.Errorf("audio data is not base64: %w", core.ErrInvalidInput)
	ErrAudioTooShort    = fmt.Errorf("audio clip too short: %w", core.ErrInvalidInput)
	ErrNoSpeech         = fmt.Errorf("no speech recognised: %w", core.ErrInvalidInput)
	ErrTranscribeFailed = errors.New("transcription failed")
	ErrSynthesisFailed  = errors.New("voice synthesis failed")
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, names ...string) ([]byte, error)
}

// Conversations is the part of the chat service a voice message runs
// through.
type Conversations interface {
	Open(ctx context.Context, userID string, conversationID int64) (*chat.Exchange, error)
	History(ctx context.Context, conversationID int64) ([]llm.Turn, error)
	Generate(
		ctx context.Context,
		ex *chat.Exchange,
		history []llm.Turn,
		content string,
		lang language.Language,
		voice bool,
	) (string, error)
	Record(ctx context.Context, ex *chat.Exchange, userMsg, aiMsg *chat.Message) (int, error)
	Charge(ctx context.Context, ex *chat.Exchange) (int, error)
}

type Service struct {
	chat     Conversations
	stt      Transcriber
	tts      Synthesizer
	minBytes int
	logger   *slog.Logger
}

type ServiceConfig struct {
	Chat          Conversations
	Transcriber   Transcriber
	Synthesizer   Synthesizer
	MinAudioBytes int
	Logger        *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	minBytes := cfg.MinAudioBytes
	if minBytes <= 0 {
		minBytes = DefaultMinAudioBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		chat:     cfg.Chat,
		stt:      cfg.Transcriber,
		tts:      cfg.Synthesizer,
		minBytes: minBytes,
		logger:   logger,
	}
}

// DecodeAudio accepts plain base64 or a data URL and returns the raw bytes
// along with the bare base64 payload.
func (s *Service) DecodeAudio(data string) ([]byte, string, error) {
	data = strings.TrimSpace(data)
	if i := strings.Index(data, ";base64,"); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+len(";base64,"):]
	}
	if data == "" {
		return nil, "", ErrAudioMissing
	}

	audio, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", ErrAudioMalformed
	}
	if len(audio) < s.minBytes {
		return nil, "", ErrAudioTooShort
	}

	return audio, data, nil
}

func (s *Service) Transcribe(ctx context.Context, audioData string) (string, error) {
	audio, _, err := s.DecodeAudio(audioData)
	if err != nil {
		return "", err
	}
	return s.transcribe(ctx, audio)
}

func (s *Service) transcribe(ctx context.Context, audio []byte) (string, error) {
	text, err := s.stt.Transcribe(ctx, audio)
	if err != nil {
		s.logger.ErrorContext(ctx, "transcription failed",
			"audio_bytes", len(audio),
			"error", err,
		)
		return "", errors.Join(core.ErrUpstream, ErrTranscribeFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

type MessageResult struct {
	UserMessage   *chat.Message
	AIMessage     *chat.Message
	VoiceResponse []byte
	UserAudio     string
	Language      language.Language
	UserCoins     int
	MessageCount  int
}

// Message runs a voice turn: checks, transcription, language detection,
// reply, synthesis, then both messages stored and one coin debited. Nothing
// is charged unless the spoken reply was produced.
func (s *Service) Message(
	ctx context.Context,
	userID string,
	conversationID int64,
	audioData string,
) (_ *MessageResult, err error) {
	defer func() {
		metrics.MessagesTotal.WithLabelValues("voice", chat.Outcome(err)).Inc()
	}()

	ex, err := s.chat.Open(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	audio, payload, err := s.DecodeAudio(audioData)
	if err != nil {
		return nil, err
	}

	transcript, err := s.transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}

	lang := language.Detect(transcript)

	history, err := s.chat.History(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("voice message: %w", err)
	}

	reply, err := s.chat.Generate(ctx, ex, history, transcript, lang, true)
	if err != nil {
		return nil, err
	}

	speech, err := s.tts.Synthesize(ctx, reply, ex.Character.Key, ex.Character.Name)
	if err != nil {
		s.logger.ErrorContext(ctx, "voice synthesis failed",
			"conversation_id", conversationID,
			"character", ex.Character.Key,
			"error", err,
		)
		return nil, errors.Join(core.ErrUpstream, ErrSynthesisFailed, err)
	}

	userMsg := &chat.Message{Content: transcript, Sender: chat.SenderUser, Language: lang}
	aiMsg := &chat.Message{Content: reply, Sender: chat.SenderAssistant, Language: lang}
	count, err := s.chat.Record(ctx, ex, userMsg, aiMsg)
	if err != nil {
		return nil, fmt.Errorf("voice message: %w", err)
	}

	coins, err := s.chat.Charge(ctx, ex)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "voice message processed",
		"conversation_id", conversationID,
		"language", lang,
		"audio_bytes", len(audio),
		"speech_bytes", len(speech),
	)

	return &MessageResult{
		UserMessage:   userMsg,
		AIMessage:     aiMsg,
		VoiceResponse: speech,
		UserAudio:     audioDataURL(audio, payload),
		Language:      lang,
		UserCoins:     coins,
		MessageCount:  count,
	}, nil
}

// audioDataURL echoes the caller's clip back with the MIME type sniffed the
// same way the transcriber names the upload.
func audioDataURL(audio []byte, payload string) string {
	_, contentType := speech.AudioFile(audio)
	return "data:" + contentType + ";base64," + payload
}
