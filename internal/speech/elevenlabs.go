// AngelaMos | 2026
// elevenlabs.go

package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/saathi-labs/companion-api/internal/config"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/metrics"
)

const DefaultVoiceKey = "default"

var ErrEmptyAudio = errors.New("synthesizer returned no audio")

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type ElevenLabs struct {
	apiKey     string
	baseURL    string
	modelID    string
	voices     map[string]string
	settings   voiceSettings
	httpClient *http.Client
	logger     *slog.Logger
}

func NewElevenLabs(cfg config.ElevenLabsConfig, logger *slog.Logger) *ElevenLabs {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	voices := make(map[string]string, len(cfg.Voices))
	for k, v := range cfg.Voices {
		voices[strings.ToLower(k)] = v
	}

	return &ElevenLabs{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		modelID: cfg.ModelID,
		voices:  voices,
		settings: voiceSettings{
			Stability:       cfg.Stability,
			SimilarityBoost: cfg.SimilarityBoost,
			UseSpeakerBoost: true,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// VoiceFor resolves a character name or key to a voice id, falling back to
// the default voice.
func (e *ElevenLabs) VoiceFor(names ...string) string {
	for _, n := range names {
		if id, ok := e.voices[strings.ToLower(strings.TrimSpace(n))]; ok && id != "" {
			return id
		}
	}
	return e.voices[DefaultVoiceKey]
}

// Synthesize renders text with the voice for the given character names and
// returns MPEG audio.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string, names ...string) (_ []byte, err error) {
	voiceID := e.VoiceFor(names...)

	ctx, span := core.StartSpan(ctx, "speech.elevenlabs.synthesize",
		attribute.String("tts.voice_id", voiceID),
		attribute.Int("tts.text_length", len(text)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ObserveProvider("elevenlabs", "synthesize", start, err)
		if err != nil {
			core.SetSpanError(span, err)
		}
	}()

	payload, err := json.Marshal(map[string]any{
		"text":           text,
		"model_id":       e.modelID,
		"voice_settings": e.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+"/text-to-speech/"+url.PathEscape(voiceID),
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post tts: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	audio, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read tts audio: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		e.logger.Error("elevenlabs synthesis failed",
			"status", resp.StatusCode,
			"voice_id", voiceID,
			"body", truncate(audio, 256),
		)
		return nil, fmt.Errorf("elevenlabs: status=%d", resp.StatusCode)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	e.logger.Debug("voice generated",
		"voice_id", voiceID,
		"text_length", len(text),
		"audio_bytes", len(audio),
	)

	return audio, nil
}
