package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"legal_rag/internal/extract"
)

// LoadSummary counts what a knowledge base load did.
type LoadSummary struct {
	Files   int
	Indexed int
	Skipped int
	Failed  int
	Chunks  int
}

// KnowledgeLoader indexes a directory of reference documents into the
// permanent collection.
type KnowledgeLoader struct {
	pipeline    *Pipeline
	store       VectorStore
	collection  string
	concurrency int
	log         *slog.Logger
}

func NewKnowledgeLoader(pipeline *Pipeline, store VectorStore, collection string, concurrency int, log *slog.Logger) *KnowledgeLoader {
	return &KnowledgeLoader{
		pipeline:    pipeline,
		store:       store,
		collection:  collection,
		concurrency: max(1, concurrency),
		log:         log.With("collection", collection),
	}
}

// Load indexes every supported file under dir. Files whose first chunk is
// already stored are skipped unless force is set, in which case the
// collection is dropped first. A missing dir is created and yields an
// empty summary. Per-file failures are counted, not returned.
func (k *KnowledgeLoader) Load(ctx context.Context, dir string, force bool) (LoadSummary, error) {
	var sum LoadSummary

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return sum, fmt.Errorf("failed to create knowledge dir %s: %w", dir, err)
		}
		k.log.Warn("knowledge dir was missing, created it", "dir", dir)
		return sum, nil
	}

	files, err := knowledgeFiles(dir)
	if err != nil {
		return sum, err
	}
	sum.Files = len(files)

	if force {
		k.log.Info("force reload, dropping permanent collection")
		if err := k.store.DeleteCollection(k.collection); err != nil {
			return sum, fmt.Errorf("%w: %w", ErrBackend, err)
		}
	}
	if err := k.store.GetOrCreateCollection(k.collection, map[string]string{"description": "Permanent Nepali legal knowledge base"}); err != nil {
		return sum, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(k.concurrency)

	for _, rel := range files {
		prefix := sourceID(rel)
		if !force && k.store.Has(ctx, k.collection, ChunkID(prefix, 0)) {
			k.log.Info("already indexed, skipping", "file", rel)
			mu.Lock()
			sum.Skipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := k.pipeline.Process(ctx, Job{
				DocumentID: prefix,
				Path:       filepath.Join(dir, rel),
				Collection: k.collection,
				IDPrefix:   prefix,
				Meta:       map[string]string{"source": rel},
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				k.log.Warn("failed to index file", "file", rel, "error", err)
				sum.Failed++
				return nil
			}
			sum.Indexed++
			sum.Chunks += res.NumChunks
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return sum, err
	}

	k.log.Info("knowledge base loaded",
		"files", sum.Files,
		"indexed", sum.Indexed,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"chunks", sum.Chunks,
		"total", k.store.Count(k.collection))
	return sum, nil
}

// knowledgeFiles lists supported files under dir, relative and sorted.
func knowledgeFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !extract.SupportedFile(path) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk knowledge dir %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// sourceID turns a relative path into a stable chunk id prefix.
func sourceID(rel string) string {
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "__")
}
