// Package llm generates answers from retrieved legal context.
package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"legal_rag/internal/config"
	"legal_rag/internal/guard"
)

// FallbackAnswer is shown to the user when the model cannot be reached.
const FallbackAnswer = "माफ गर्नुहोस्, मलाई अहिले उत्तर दिन समस्या भइरहेको छ। कृपया फेरि प्रयास गर्नुहोस्।"

// Completer runs one single-shot completion.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options are the sampling settings shared by providers.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Guarded rate-limits and circuit-breaks another completer.
type Guarded struct {
	next  Completer
	guard *guard.Guard
}

func NewGuarded(next Completer, g *guard.Guard) *Guarded {
	return &Guarded{next: next, guard: g}
}

func (g *Guarded) Complete(ctx context.Context, system, user string) (string, error) {
	return guard.Do(ctx, g.guard, func() (string, error) {
		return g.next.Complete(ctx, system, user)
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the configured provider behind a guard.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (Completer, io.Closer, error) {
	opts := Options{Model: cfg.LLMModel, Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}

	var (
		base   Completer
		closer io.Closer = nopCloser{}
	)
	switch cfg.LLMProvider {
	case "openai":
		base = NewOpenAI(cfg.LLMURL, cfg.LLMAPIKey, opts)
	case "gemini":
		g, err := NewGemini(ctx, cfg.LLMAPIKey, opts)
		if err != nil {
			return nil, nil, err
		}
		base, closer = g, g
	default:
		return nil, nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}

	log.Info("llm provider ready", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	return NewGuarded(base, guard.New("llm", cfg.RateLimitRPM, log)), closer, nil
}
