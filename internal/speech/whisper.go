// AngelaMos | 2026
// whisper.go

// Package speech wraps the speech-to-text and text-to-speech providers.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/saathi-labs/companion-api/internal/config"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/metrics"
)

const transcriptionPrompt = "This is a conversation that could be in English, Hindi, or mixed languages. " +
	"Transcribe exactly what was said in the original language without translation."

type Whisper struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewWhisper(cfg config.OpenAIConfig, logger *slog.Logger) *Whisper {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Whisper{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.TranscriptionModel,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// AudioFile picks the upload name and content type for raw audio. MP3 is
// recognised by an ID3 tag or an MPEG frame sync; everything else is
// treated as WebM, which is what browsers record.
func AudioFile(audio []byte) (name, contentType string) {
	if len(audio) >= 3 && audio[0] == 'I' && audio[1] == 'D' && audio[2] == '3' {
		return "voice.mp3", "audio/mpeg"
	}
	if len(audio) >= 2 && audio[0] == 0xFF && audio[1]&0xE0 == 0xE0 {
		return "voice.mp3", "audio/mpeg"
	}
	return "voice.webm", "audio/webm"
}

// Transcribe returns the trimmed transcript. No language hint is sent so
// the model detects it.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (_ string, err error) {
	name, contentType := AudioFile(audio)

	ctx, span := core.StartSpan(ctx, "speech.whisper.transcribe",
		attribute.Int("audio.bytes", len(audio)),
		attribute.String("audio.file", name),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ObserveProvider("openai", "transcribe", start, err)
		if err != nil {
			core.SetSpanError(span, err)
		}
	}()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}

	fields := map[string]string{
		"model":           w.model,
		"prompt":          transcriptionPrompt,
		"temperature":     "0",
		"response_format": "json",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		w.baseURL+"/audio/transcriptions",
		&body,
	)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post transcription: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read transcription: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		w.logger.Error("whisper transcription failed",
			"status", resp.StatusCode,
			"body", truncate(raw, 256),
		)
		return "", fmt.Errorf("whisper: status=%d", resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}

	return strings.TrimSpace(out.Text), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
