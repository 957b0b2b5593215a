// Package vectorstore persists chunk embeddings in named chromem collections.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/philippgille/chromem-go"
)

var ErrNoCollection = errors.New("collection not found")

// QueryResult holds positionally aligned nearest-neighbour lists.
// Distances are cosine distances in [0, 2].
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]string
	Distances []float64
}

func (r QueryResult) Len() int {
	return len(r.IDs)
}

// Store wraps a chromem database. chromem serialises writes per collection,
// so Store adds no locking of its own.
type Store struct {
	db  *chromem.DB
	log *slog.Logger
}

// Open opens a persistent store under path, or an in-memory one when path is
// empty.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if path == "" {
		return &Store{db: chromem.NewDB(), log: log}, nil
	}

	db, err := chromem.NewPersistentDB(path, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store at %s: %w", path, err)
	}
	log.Info("vector store opened", "path", path, "collections", len(db.ListCollections()))
	return &Store{db: db, log: log}, nil
}

// Embeddings are always supplied by the caller, so collections carry no
// embedding func of their own.
func noEmbed(context.Context, string) ([]float32, error) {
	return nil, errors.New("vector store does not embed text")
}

func (s *Store) GetOrCreateCollection(name string, meta map[string]string) error {
	_, err := s.db.GetOrCreateCollection(name, meta, noEmbed)
	if err != nil {
		return fmt.Errorf("get or create collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	c := s.db.GetCollection(name, noEmbed)
	if c == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNoCollection)
	}
	return c, nil
}

// Upsert writes aligned slices into a collection, creating it if needed.
// Existing ids are overwritten.
func (s *Store) Upsert(ctx context.Context, name string, ids []string, embeddings [][]float32, docs []string, metas []map[string]string) error {
	n := len(ids)
	if len(embeddings) != n || len(docs) != n || len(metas) != n {
		return fmt.Errorf("upsert %s: misaligned input (ids=%d embeddings=%d docs=%d metas=%d)",
			name, n, len(embeddings), len(docs), len(metas))
	}
	if n == 0 {
		return nil
	}

	c, err := s.db.GetOrCreateCollection(name, nil, noEmbed)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	if err := c.Add(ctx, ids, embeddings, metas, docs); err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return nil
}

// Query returns up to k nearest neighbours. k is clamped to the collection
// size; an empty collection yields an empty result.
func (s *Store) Query(ctx context.Context, name string, embedding []float32, k int) (QueryResult, error) {
	c, err := s.collection(name)
	if err != nil {
		return QueryResult{}, err
	}

	k = min(k, c.Count())
	if k <= 0 {
		return QueryResult{}, nil
	}

	results, err := c.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query %s: %w", name, err)
	}

	out := QueryResult{
		IDs:       make([]string, len(results)),
		Documents: make([]string, len(results)),
		Metadatas: make([]map[string]string, len(results)),
		Distances: make([]float64, len(results)),
	}
	for i, r := range results {
		out.IDs[i] = r.ID
		out.Documents[i] = r.Content
		out.Metadatas[i] = r.Metadata
		out.Distances[i] = 1 - float64(r.Similarity)
	}
	return out, nil
}

// Has reports whether a document id exists in a collection.
func (s *Store) Has(ctx context.Context, name, id string) bool {
	c, err := s.collection(name)
	if err != nil {
		return false
	}
	_, err = c.GetByID(ctx, id)
	return err == nil
}

func (s *Store) Count(name string) int {
	c, err := s.collection(name)
	if err != nil {
		return 0
	}
	return c.Count()
}

// DeleteCollection removes a collection. Deleting a missing one is not an
// error.
func (s *Store) DeleteCollection(name string) error {
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	s.log.Info("collection deleted", "collection", name)
	return nil
}
