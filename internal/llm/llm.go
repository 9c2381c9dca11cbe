// AngelaMos | 2026
// llm.go

// Package llm generates companion replies from a system prompt, a
// trailing window of the conversation and the new user message.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/saathi-labs/companion-api/internal/config"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role
	Content string
}

type Request struct {
	System  string
	History []Turn
	Message string
}

type Params struct {
	MaxTokens        int
	Temperature      float64
	PresencePenalty  float64
	FrequencyPenalty float64
}

func ParamsFromConfig(cfg config.LLMConfig) Params {
	return Params{
		MaxTokens:        cfg.MaxTokens,
		Temperature:      cfg.Temperature,
		PresencePenalty:  cfg.PresencePenalty,
		FrequencyPenalty: cfg.FrequencyPenalty,
	}
}

var ErrEmptyCompletion = errors.New("llm returned an empty completion")

type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Provider is a Completer that holds resources needing release.
type Provider interface {
	Completer
	Close() error
}

// New builds the completion backend named by cfg.LLM.Provider.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Provider, error) {
	params := ParamsFromConfig(cfg.LLM)

	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAI(cfg.OpenAI, params, logger), nil
	case "gemini":
		return NewGemini(ctx, cfg.Gemini, params, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
}
