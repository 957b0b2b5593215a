package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"legal_rag/internal/llm"
	"legal_rag/internal/retrieval"
)

// Retriever is the search side of the retrieval engine.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) ([]retrieval.RetrievedChunk, error)
}

// Question is one user turn.
type Question struct {
	Text       string
	Owner      string
	Source     string // auto, private, permanent or both
	DocumentID string // optional; defaults to all of the owner's completed documents
}

// Answer is what the assistant returns for a question.
type Answer struct {
	Text     string
	Mode     retrieval.Mode
	Chunks   []retrieval.RetrievedChunk
	Sources  map[retrieval.Source]int
	Fallback bool // the model or retrieval failed and Text is the apology
}

type Assistant struct {
	retriever      Retriever
	completer      llm.Completer
	registry       *Registry
	topK           int
	maxPromptChars int
	log            *slog.Logger
}

func NewAssistant(r Retriever, c llm.Completer, registry *Registry, topK, maxPromptChars int, log *slog.Logger) *Assistant {
	return &Assistant{
		retriever:      r,
		completer:      c,
		registry:       registry,
		topK:           topK,
		maxPromptChars: maxPromptChars,
		log:            log,
	}
}

// Ask answers a question from retrieved context. Backend failures are not
// returned as errors: the answer carries llm.FallbackAnswer instead. Only an
// invalid request is an error.
func (a *Assistant) Ask(ctx context.Context, q Question) (Answer, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return Answer{}, fmt.Errorf("%w: empty question", ErrInput)
	}

	collections, err := a.privateCollections(q)
	if err != nil {
		return Answer{}, err
	}
	mode, err := a.mode(q.Source, len(collections) > 0)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %w", ErrInput, err)
	}

	log := a.log.With("owner", q.Owner, "mode", mode.String(), "private_documents", len(collections))
	chunks, err := a.retriever.Retrieve(ctx, retrieval.Request{
		Query:              text,
		PrivateCollections: collections,
		TopK:               a.topK,
		Mode:               mode,
	})
	if err != nil {
		log.Error("retrieval failed", "error", err)
		return Answer{Text: llm.FallbackAnswer, Mode: mode, Fallback: true}, nil
	}

	ans := Answer{Mode: mode, Chunks: chunks, Sources: summarizeSources(chunks)}
	if len(chunks) == 0 {
		log.Info("no context found")
		ans.Text = NoContextAnswer
		return ans, nil
	}
	logHits(log, chunks)

	prompt := BuildPrompt(text, chunks, a.maxPromptChars)
	reply, err := a.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		log.Error("completion failed", "error", err)
		ans.Text = llm.FallbackAnswer
		ans.Fallback = true
		return ans, nil
	}
	ans.Text = reply
	return ans, nil
}

// privateCollections resolves which uploads a question searches: the pinned
// document, or else every completed upload of the owner, newest first.
func (a *Assistant) privateCollections(q Question) ([]string, error) {
	if q.Owner == "" || a.registry == nil {
		return nil, nil
	}
	if q.DocumentID != "" {
		rec, ok := a.registry.Get(q.DocumentID)
		if !ok || rec.Owner != q.Owner {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, q.DocumentID)
		}
		if rec.Status != StatusCompleted {
			return nil, fmt.Errorf("%w: document %s is %s", ErrInput, rec.ID, rec.Status)
		}
		return []string{rec.CollectionID}, nil
	}

	docs := a.registry.Completed(q.Owner)
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.CollectionID)
	}
	return out, nil
}

func (a *Assistant) mode(source string, hasPrivate bool) (retrieval.Mode, error) {
	if source == "" || strings.EqualFold(source, "auto") {
		return retrieval.AutoMode(hasPrivate), nil
	}
	return retrieval.ParseMode(source)
}

// summarizeSources counts hits per collection kind.
func summarizeSources(chunks []retrieval.RetrievedChunk) map[retrieval.Source]int {
	out := make(map[retrieval.Source]int)
	for _, c := range chunks {
		out[c.Source]++
	}
	return out
}

func logHits(log *slog.Logger, chunks []retrieval.RetrievedChunk) {
	for i, c := range chunks {
		log.Debug("context chunk",
			"rank", i+1,
			"source", string(c.Source),
			"title", c.Meta.HierarchicalTitle,
			"score", fmt.Sprintf("%.3f", c.Score))
	}
}
