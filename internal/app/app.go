// Package app wires the document pipeline, the knowledge base loader, the
// upload processor and the question answering flow.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"legal_rag/internal/chunker"
	"legal_rag/internal/config"
	"legal_rag/internal/embedding"
	"legal_rag/internal/glyph"
	"legal_rag/internal/llm"
	"legal_rag/internal/retrieval"
	"legal_rag/internal/vectorstore"
)

type App struct {
	cfg       *config.Config
	log       *slog.Logger
	store     *vectorstore.Store
	registry  *Registry
	pipeline  *Pipeline
	processor *Processor
	loader    *KnowledgeLoader
	assistant *Assistant
	closers   []io.Closer

	in  io.Reader
	out io.Writer
}

// New builds the application from configuration. Background uploads are
// bound to ctx.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log, in: os.Stdin, out: os.Stdout}

	rules, err := glyph.LoadRules(cfg.GlyphRulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load glyph rules: %w", err)
	}

	a.store, err = vectorstore.Open(filepath.Join(cfg.DataDir, "vectors"), log)
	if err != nil {
		return nil, err
	}

	registryFile := cfg.RegistryFile
	if registryFile == "" {
		registryFile = filepath.Join(cfg.DataDir, "registry.json")
	}
	a.registry, err = OpenRegistry(registryFile)
	if err != nil {
		return nil, err
	}

	embedder, embedCloser, err := embedding.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	a.closers = append(a.closers, embedCloser)

	completer, llmCloser, err := llm.New(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	a.closers = append(a.closers, llmCloser)

	chunkers := chunker.NewFactory(chunker.Config{MaxTokens: cfg.ChunkMaxTokens}, log)
	a.pipeline = NewPipeline(chunkers, glyph.NewRepairer(rules), embedder, a.store, cfg.EmbedBatchSize, log)
	a.processor = NewProcessor(ctx, a.pipeline, a.registry, log)
	a.loader = NewKnowledgeLoader(a.pipeline, a.store, cfg.PermanentCollection, cfg.IndexConcurrency, log)

	engine := retrieval.NewEngine(embedder, a.store, cfg.PermanentCollection, cfg.TopK, log)
	a.assistant = NewAssistant(engine, completer, a.registry, cfg.TopK, cfg.MaxPromptChars, log)

	return a, nil
}

// Init checks that local model backends are reachable before any work.
func (a *App) Init(ctx context.Context) error {
	if a.cfg.EmbeddingsProvider == "ollama" {
		if err := ensureOllamaModel(ctx, a.cfg.EmbeddingsURL, a.cfg.EmbeddingsModel, a.log); err != nil {
			return fmt.Errorf("ollama model check failed: %w", err)
		}
	}
	a.log.Info("application initialised",
		"permanent_chunks", a.store.Count(a.cfg.PermanentCollection),
		"embeddings", a.cfg.EmbeddingsProvider,
		"llm", a.cfg.LLMProvider)
	return nil
}

// LoadKnowledge indexes the configured knowledge directory.
func (a *App) LoadKnowledge(ctx context.Context, force bool) (LoadSummary, error) {
	return a.loader.Load(ctx, a.cfg.KnowledgeDir, force)
}

// Upload queues a private document for background processing.
func (a *App) Upload(owner, documentID, path string) (DocumentRecord, error) {
	return a.processor.Submit(owner, documentID, path)
}

func (a *App) Document(id string) (DocumentRecord, bool) {
	return a.registry.Get(id)
}

func (a *App) Ask(ctx context.Context, q Question) (Answer, error) {
	return a.assistant.Ask(ctx, q)
}

// Wait blocks until pending uploads are terminal.
func (a *App) Wait() {
	a.processor.Wait()
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ensureOllamaModel pulls the model when the Ollama server at baseURL (its
// /api root) does not list it yet.
func ensureOllamaModel(ctx context.Context, baseURL, model string, log *slog.Logger) error {
	baseURL = strings.TrimRight(baseURL, "/")
	client := &http.Client{Timeout: 10 * time.Minute}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/tags", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not reachable at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d for %s/tags", resp.StatusCode, baseURL)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode ollama tags: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == model || strings.TrimSuffix(m.Name, ":latest") == model {
			log.Info("model is available", "model", model)
			return nil
		}
	}

	log.Info("model not found, pulling", "model", model)
	body, err := json.Marshal(map[string]any{"name": model, "stream": false})
	if err != nil {
		return err
	}
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	pull, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to pull model %s: %w", model, err)
	}
	defer pull.Body.Close()
	if pull.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(pull.Body, 1024))
		return fmt.Errorf("failed to pull model %s: status %d: %s", model, pull.StatusCode, msg)
	}
	log.Info("model pulled", "model", model)
	return nil
}
