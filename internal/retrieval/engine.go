// Package retrieval searches the private and permanent collections for a
// query and merges the hits into one ranked list.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"legal_rag/internal/chunker"
	"legal_rag/internal/embedding"
	"legal_rag/internal/vectorstore"
)

// Mode selects which collections a request searches.
type Mode int

const (
	ModePrivateOnly Mode = iota
	ModePermanentOnly
	ModeBoth
)

func (m Mode) String() string {
	switch m {
	case ModePrivateOnly:
		return "private"
	case ModePermanentOnly:
		return "permanent"
	default:
		return "both"
	}
}

// ParseMode accepts the source names used by the CLI.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "private", "user":
		return ModePrivateOnly, nil
	case "permanent":
		return ModePermanentOnly, nil
	case "all", "both":
		return ModeBoth, nil
	default:
		return 0, fmt.Errorf("unknown retrieval source: %q", s)
	}
}

// AutoMode prefers the user's own documents once they have any.
func AutoMode(hasPrivate bool) Mode {
	if hasPrivate {
		return ModePrivateOnly
	}
	return ModePermanentOnly
}

type Source string

const (
	SourcePrivate   Source = "private"
	SourcePermanent Source = "permanent"
)

// RetrievedChunk is one ranked hit.
type RetrievedChunk struct {
	ID     string
	Text   string
	Meta   chunker.Metadata
	Score  float64
	Source Source
}

type Request struct {
	Query              string
	PrivateCollections []string // searched in order, each isolated on failure
	TopK               int
	Mode               Mode
}

// Searcher is the read side of the vector store.
type Searcher interface {
	Query(ctx context.Context, name string, embedding []float32, k int) (vectorstore.QueryResult, error)
}

type Engine struct {
	embedder   embedding.Embedder
	store      Searcher
	permanent  string
	defaultTop int
	log        *slog.Logger
}

func NewEngine(e embedding.Embedder, store Searcher, permanentCollection string, defaultTopK int, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		embedder:   e,
		store:      store,
		permanent:  permanentCollection,
		defaultTop: defaultTopK,
		log:        log,
	}
}

// Score maps a cosine distance in [0, 2] to a relevance in [0, 1].
func Score(distance float64) float64 {
	return 1 - distance/2
}

// Retrieve returns at most TopK chunks, best first. A failing collection is
// logged and contributes nothing; only a failed query embedding is an error.
func (e *Engine) Retrieve(ctx context.Context, req Request) ([]RetrievedChunk, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = e.defaultTop
	}

	vec, err := embedding.EmbedQuery(ctx, e.embedder, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var hits []RetrievedChunk
	if req.Mode != ModePermanentOnly {
		for _, name := range req.PrivateCollections {
			if name == "" {
				continue
			}
			hits = append(hits, e.search(ctx, name, SourcePrivate, vec, topK)...)
		}
	}
	if req.Mode != ModePrivateOnly {
		hits = append(hits, e.search(ctx, e.permanent, SourcePermanent, vec, topK)...)
	}

	hits = dedup(hits)
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	e.log.Debug("retrieved",
		"mode", req.Mode.String(),
		"private_collections", len(req.PrivateCollections),
		"results", len(hits))
	return hits, nil
}

func (e *Engine) search(ctx context.Context, collection string, src Source, vec []float32, k int) []RetrievedChunk {
	res, err := e.store.Query(ctx, collection, vec, k)
	if err != nil {
		e.log.Warn("collection search failed", "collection", collection, "source", string(src), "error", err)
		return nil
	}

	n := min(len(res.IDs), len(res.Documents), len(res.Distances))
	if n != len(res.IDs) || len(res.Metadatas) < n {
		e.log.Warn("misaligned search result", "collection", collection,
			"ids", len(res.IDs), "documents", len(res.Documents),
			"distances", len(res.Distances), "metadatas", len(res.Metadatas))
	}

	out := make([]RetrievedChunk, 0, n)
	for i := range n {
		var meta chunker.Metadata
		if i < len(res.Metadatas) {
			meta = chunker.MetadataFromMap(res.Metadatas[i])
		}
		out = append(out, RetrievedChunk{
			ID:     res.IDs[i],
			Text:   res.Documents[i],
			Meta:   meta,
			Score:  Score(res.Distances[i]),
			Source: src,
		})
	}
	return out
}

// dedup drops repeated texts, keeping the first occurrence in input order.
func dedup(hits []RetrievedChunk) []RetrievedChunk {
	seen := make(map[uint64]struct{}, len(hits))
	out := hits[:0]
	for _, h := range hits {
		key := xxhash.Sum64String(h.Text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}
