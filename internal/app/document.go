package app

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"strconv"

	"legal_rag/internal/chunker"
	"legal_rag/internal/embedding"
	"legal_rag/internal/extract"
	"legal_rag/internal/glyph"
	"legal_rag/internal/retrieval"
)

// VectorStore is what the application needs from the vector database.
type VectorStore interface {
	retrieval.Searcher
	GetOrCreateCollection(name string, meta map[string]string) error
	Upsert(ctx context.Context, name string, ids []string, embeddings [][]float32, docs []string, metas []map[string]string) error
	Has(ctx context.Context, name, id string) bool
	Count(name string) int
	DeleteCollection(name string) error
}

// Result is the outcome of processing one document. Exactly one of the
// success fields or Error is set.
type Result struct {
	Success      bool   `json:"success"`
	CollectionID string `json:"collection_id,omitempty"`
	NumChunks    int    `json:"num_chunks,omitempty"`
	NumPages     int    `json:"num_pages,omitempty"`
	Error        string `json:"error,omitempty"`
}

func failure(err error) Result {
	return Result{Error: err.Error()}
}

// Job describes one document to index.
type Job struct {
	DocumentID string
	Path       string
	Collection string
	IDPrefix   string            // store ids are <IDPrefix>_chunk_<i>
	Meta       map[string]string // merged into every chunk's metadata
}

// ChunkID is the store id of the i-th chunk of a document.
func ChunkID(prefix string, i int) string {
	return prefix + "_chunk_" + strconv.Itoa(i)
}

// CollectionName names the private collection of an uploaded document.
func CollectionName(owner, documentID string) string {
	return fmt.Sprintf("user_%s_doc_%s", owner, documentID)
}

// Pipeline runs extraction, repair, segmentation, embedding and storage
// for one document at a time. It holds no per-document state and may be
// shared between goroutines.
type Pipeline struct {
	chunkers  *chunker.Factory
	repairer  *glyph.Repairer
	embedder  embedding.Embedder
	store     VectorStore
	batchSize int
	log       *slog.Logger
}

func NewPipeline(chunkers *chunker.Factory, repairer *glyph.Repairer, embedder embedding.Embedder, store VectorStore, batchSize int, log *slog.Logger) *Pipeline {
	return &Pipeline{
		chunkers:  chunkers,
		repairer:  repairer,
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
		log:       log,
	}
}

// Process indexes one document. The returned error wraps ErrInput,
// ErrNoChunks or ErrBackend; the Result mirrors it for callers that only
// record outcomes.
func (p *Pipeline) Process(ctx context.Context, job Job) (Result, error) {
	log := p.log.With("document_id", job.DocumentID, "collection", job.Collection)
	if job.IDPrefix == "" {
		job.IDPrefix = job.Collection
	}

	doc, err := extract.ReadDocument(job.Path)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInput, err)
		log.Error("document processing failed", "stage", "extract", "error", err)
		return failure(err), err
	}
	log.Info("document loaded", "stage", "extract", "kind", string(doc.Kind), "pages", len(doc.Pages))

	chunks := p.segment(doc, log)
	if len(chunks) == 0 {
		err := fmt.Errorf("%s: %w", filepath.Base(job.Path), ErrNoChunks)
		log.Error("document processing failed", "stage", "segment", "error", err)
		return failure(err), err
	}
	log.Info("document segmented", "stage", "segment", "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embedding.EmbedPassages(ctx, p.embedder, texts, p.batchSize)
	if err != nil {
		err = fmt.Errorf("%w: embedding: %w", ErrBackend, err)
		log.Error("document processing failed", "stage", "embed", "error", err)
		return failure(err), err
	}

	if err := p.store.GetOrCreateCollection(job.Collection, collectionMeta(job)); err != nil {
		err = fmt.Errorf("%w: %w", ErrBackend, err)
		log.Error("document processing failed", "stage", "store", "error", err)
		return failure(err), err
	}

	ids := make([]string, len(chunks))
	metas := make([]map[string]string, len(chunks))
	for i, c := range chunks {
		ids[i] = ChunkID(job.IDPrefix, i)
		m := c.Meta.ToMap()
		m["chunk_id"] = c.ID
		m["chunk_index"] = strconv.Itoa(i)
		maps.Copy(m, job.Meta)
		metas[i] = m
	}

	if err := p.store.Upsert(ctx, job.Collection, ids, vectors, texts, metas); err != nil {
		err = fmt.Errorf("%w: %w", ErrBackend, err)
		log.Error("document processing failed", "stage", "store", "error", err)
		return failure(err), err
	}

	log.Info("document indexed", "stage", "store", "chunks", len(chunks))
	return Result{
		Success:      true,
		CollectionID: job.Collection,
		NumChunks:    len(chunks),
		NumPages:     len(doc.Pages),
	}, nil
}

func (p *Pipeline) segment(doc extract.Document, log *slog.Logger) []chunker.Chunk {
	if doc.Kind == extract.KindLegacy {
		return p.chunkers.Legal(p.repairer.Repair).Segment(doc.Pages, doc.Path)
	}

	c, err := p.chunkers.GetChunker(doc.Path, "")
	if err == nil {
		if _, legal := c.(*chunker.LegalChunker); !legal {
			var chunks []chunker.Chunk
			chunks, err = c.Chunk(p.repairer.Clean(doc.Text()), doc.Path)
			if err == nil {
				return chunks
			}
			log.Warn("chunker failed, falling back to legal chunker", "stage", "segment", "error", err)
		}
	} else {
		log.Warn("no chunker for file, using legal chunker", "stage", "segment", "error", err)
	}

	// Pages go through the legal chunker directly so chunk metadata keeps
	// page numbers.
	return p.chunkers.Legal(p.repairer.Clean).Segment(doc.Pages, doc.Path)
}

func collectionMeta(job Job) map[string]string {
	meta := map[string]string{"description": "Nepali legal documents"}
	maps.Copy(meta, job.Meta)
	return meta
}
