// AngelaMos | 2026
// openai.go

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/saathi-labs/companion-api/internal/config"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/metrics"
)

type OpenAI struct {
	apiKey     string
	baseURL    string
	model      string
	params     Params
	httpClient *http.Client
	logger     *slog.Logger
}

func NewOpenAI(cfg config.OpenAIConfig, params Params, logger *slog.Logger) *OpenAI {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAI{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.ChatModel,
		params:     params,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	Temperature      float64       `json:"temperature"`
	PresencePenalty  float64       `json:"presence_penalty"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (_ string, err error) {
	ctx, span := core.StartSpan(ctx, "llm.openai.complete",
		attribute.String("llm.model", o.model),
		attribute.Int("llm.history_turns", len(req.History)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ObserveProvider("openai", "chat", start, err)
		if err != nil {
			core.SetSpanError(span, err)
		}
	}()

	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, t := range req.History {
		messages = append(messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}
	messages = append(messages, chatMessage{Role: string(RoleUser), Content: req.Message})

	body, err := json.Marshal(chatRequest{
		Model:            o.model,
		Messages:         messages,
		MaxTokens:        o.params.MaxTokens,
		Temperature:      o.params.Temperature,
		PresencePenalty:  o.params.PresencePenalty,
		FrequencyPenalty: o.params.FrequencyPenalty,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		o.baseURL+"/chat/completions",
		bytes.NewReader(body),
	)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("post chat completion: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read chat completion: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode chat completion (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		o.logger.Error("openai chat completion failed",
			"status", resp.StatusCode,
			"error", msg,
		)
		return "", fmt.Errorf("openai chat: status=%d: %s", resp.StatusCode, msg)
	}

	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}

	return text, nil
}

func (o *OpenAI) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
