package embedding

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/philippgille/chromem-go"
	"google.golang.org/api/option"

	"legal_rag/internal/config"
	"legal_rag/internal/guard"
)

// FuncEmbedder adapts a single-text chromem embedding func.
type FuncEmbedder struct {
	fn chromem.EmbeddingFunc
}

func NewOllama(model, baseURL string) *FuncEmbedder {
	return &FuncEmbedder{fn: chromem.NewEmbeddingFuncOllama(model, baseURL)}
}

// NewOpenAI talks to any OpenAI-compatible embeddings endpoint.
func NewOpenAI(baseURL, apiKey, model string) *FuncEmbedder {
	normalized := false
	return &FuncEmbedder{fn: chromem.NewEmbeddingFuncOpenAICompat(baseURL, apiKey, model, &normalized)}
}

func (f *FuncEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.fn(ctx, t)
		if err != nil {
			return nil, err
		}
		if len(v) == 0 {
			return nil, ErrEmptyEmbedding
		}
		out[i] = Normalize(v)
	}
	return out, nil
}

// Gemini embeds through the Generative Language batch API.
type Gemini struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing EMBEDDINGS_API_KEY for gemini embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, model: client.EmbeddingModel(model)}, nil
}

func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	batch := g.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := g.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, ErrEmptyEmbedding
		}
		out[i] = Normalize(e.Values)
	}
	return out, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// Guarded rate-limits and circuit-breaks another embedder.
type Guarded struct {
	next  Embedder
	guard *guard.Guard
}

func NewGuarded(next Embedder, g *guard.Guard) *Guarded {
	return &Guarded{next: next, guard: g}
}

func (g *Guarded) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return guard.Do(ctx, g.guard, func() ([][]float32, error) {
		return g.next.Embed(ctx, texts)
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the configured provider behind a guard. The closer releases
// provider resources.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (Embedder, io.Closer, error) {
	var (
		base   Embedder
		closer io.Closer = nopCloser{}
	)

	switch cfg.EmbeddingsProvider {
	case "ollama":
		base = NewOllama(cfg.EmbeddingsModel, cfg.EmbeddingsURL)
	case "openai":
		base = NewOpenAI(cfg.EmbeddingsURL, cfg.EmbeddingsAPIKey, cfg.EmbeddingsModel)
	case "gemini":
		g, err := NewGemini(ctx, cfg.EmbeddingsAPIKey, cfg.EmbeddingsModel)
		if err != nil {
			return nil, nil, err
		}
		base, closer = g, g
	default:
		return nil, nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	log.Info("embedding provider ready", "provider", cfg.EmbeddingsProvider, "model", cfg.EmbeddingsModel)
	return NewGuarded(base, guard.New("embeddings", cfg.RateLimitRPM, log)), closer, nil
}
