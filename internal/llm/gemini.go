// AngelaMos | 2026
// gemini.go

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"

	"github.com/saathi-labs/companion-api/internal/config"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/metrics"
)

type Gemini struct {
	client    *genai.Client
	modelName string
	params    Params
	logger    *slog.Logger
}

func NewGemini(
	ctx context.Context,
	cfg config.GeminiConfig,
	params Params,
	logger *slog.Logger,
) (*Gemini, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Gemini{
		client:    cl,
		modelName: modelName,
		params:    params,
		logger:    logger,
	}, nil
}

func (g *Gemini) Complete(ctx context.Context, req Request) (_ string, err error) {
	ctx, span := core.StartSpan(ctx, "llm.gemini.complete",
		attribute.String("llm.model", g.modelName),
		attribute.Int("llm.history_turns", len(req.History)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ObserveProvider("gemini", "chat", start, err)
		if err != nil {
			core.SetSpanError(span, err)
		}
	}()

	m := g.client.GenerativeModel(g.modelName)
	if req.System != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if g.params.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(g.params.MaxTokens)) //nolint:gosec // bounded by config
	}
	m.SetTemperature(float32(g.params.Temperature))

	cs := m.StartChat()
	cs.History = geminiHistory(req.History)

	resp, err := cs.SendMessage(ctx, genai.Text(req.Message))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// geminiHistory maps turns onto Gemini roles, where the assistant is
// "model".
func geminiHistory(turns []Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return out
}

func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
