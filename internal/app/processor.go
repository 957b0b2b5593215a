package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Processor indexes uploaded documents in the background. Each submitted
// document reaches exactly one terminal status, even if the pipeline panics.
type Processor struct {
	ctx      context.Context
	pipeline *Pipeline
	registry *Registry
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewProcessor ties background work to ctx; cancelling it aborts in-flight
// embedding calls and marks those documents failed.
func NewProcessor(ctx context.Context, pipeline *Pipeline, registry *Registry, log *slog.Logger) *Processor {
	return &Processor{ctx: ctx, pipeline: pipeline, registry: registry, log: log}
}

// Submit records the document as pending and returns at once.
func (p *Processor) Submit(owner, documentID, path string) (DocumentRecord, error) {
	if owner == "" || documentID == "" {
		return DocumentRecord{}, fmt.Errorf("%w: owner and document id are required", ErrInput)
	}
	rec, err := p.registry.Create(documentID, owner, path)
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("failed to register document %s: %w", documentID, err)
	}

	p.wg.Add(1)
	go p.process(rec)

	p.log.Info("document submitted", "document_id", documentID, "owner", owner, "path", path)
	return rec, nil
}

func (p *Processor) process(rec DocumentRecord) {
	defer p.wg.Done()

	log := p.log.With("document_id", rec.ID, "owner", rec.Owner)
	res := Result{Error: "processing aborted"}
	defer func() {
		if r := recover(); r != nil {
			log.Error("document processing panicked", "panic", r)
			res = Result{Error: fmt.Sprintf("internal error: %v", r)}
		}
		if err := p.registry.Finish(rec.ID, res); err != nil {
			log.Error("failed to record final status", "error", err)
			return
		}
		if res.Success {
			log.Info("document completed", "chunks", res.NumChunks, "pages", res.NumPages)
		} else {
			log.Warn("document failed", "error", res.Error)
		}
	}()

	if err := p.registry.MarkProcessing(rec.ID); err != nil {
		log.Error("failed to mark processing", "error", err)
	}

	res, _ = p.pipeline.Process(p.ctx, Job{
		DocumentID: rec.ID,
		Path:       rec.Path,
		Collection: CollectionName(rec.Owner, rec.ID),
		Meta: map[string]string{
			"document_id": rec.ID,
			"owner":       rec.Owner,
		},
	})
}

// Wait blocks until every submitted document is terminal.
func (p *Processor) Wait() {
	p.wg.Wait()
}
