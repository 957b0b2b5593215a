package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// DocumentRecord is the persisted state of one uploaded document.
type DocumentRecord struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	Path         string    `json:"path"`
	Status       Status    `json:"status"`
	CollectionID string    `json:"collection_id,omitempty"`
	NumChunks    int       `json:"num_chunks,omitempty"`
	NumPages     int       `json:"num_pages,omitempty"`
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	ErrUnknownDocument = errors.New("unknown document")
	ErrAlreadyFinal    = errors.New("document already in a terminal state")
	ErrInFlight        = errors.New("document is still being processed")
)

// Registry keeps document records in a JSON file. An empty path keeps them
// in memory only.
type Registry struct {
	mu   sync.Mutex
	path string
	docs map[string]DocumentRecord
}

func OpenRegistry(path string) (*Registry, error) {
	r := &Registry{path: path, docs: make(map[string]DocumentRecord)}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) load() error {
	if r.path == "" {
		return nil
	}
	f, err := os.Open(r.path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	defer f.Close()

	var docs []DocumentRecord
	if err := json.NewDecoder(f).Decode(&docs); err != nil {
		return fmt.Errorf("failed to decode registry %s: %w", r.path, err)
	}
	for _, d := range docs {
		// Nothing from an earlier run is still working on these.
		if !d.Status.Terminal() {
			d.Status = StatusFailed
			d.Error = "interrupted"
		}
		r.docs[d.ID] = d
	}
	return nil
}

// save must be called with r.mu held.
func (r *Registry) save() error {
	if r.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}

	docs := make([]DocumentRecord, 0, len(r.docs))
	for _, d := range r.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	tmp := r.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

// Create records a new document as pending. A terminal record with the same
// id is replaced; a pending or processing one is not.
func (r *Registry) Create(id, owner, path string) (DocumentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.docs[id]; ok && !d.Status.Terminal() {
		return d, fmt.Errorf("%s: %w", id, ErrInFlight)
	}
	rec := DocumentRecord{ID: id, Owner: owner, Path: path, Status: StatusPending, UpdatedAt: time.Now()}
	r.docs[id] = rec
	return rec, r.save()
}

// MarkProcessing moves a pending document to processing.
func (r *Registry) MarkProcessing(id string) error {
	return r.update(id, func(d *DocumentRecord) {
		d.Status = StatusProcessing
	})
}

// Finish stores the terminal state derived from a pipeline result. It fails
// if the document is already terminal.
func (r *Registry) Finish(id string, res Result) error {
	return r.update(id, func(d *DocumentRecord) {
		if res.Success {
			d.Status = StatusCompleted
			d.CollectionID = res.CollectionID
			d.NumChunks = res.NumChunks
			d.NumPages = res.NumPages
			d.Error = ""
			return
		}
		d.Status = StatusFailed
		d.Error = res.Error
	})
}

func (r *Registry) update(id string, fn func(*DocumentRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownDocument)
	}
	if d.Status.Terminal() {
		return fmt.Errorf("%s: %w", id, ErrAlreadyFinal)
	}
	fn(&d)
	d.UpdatedAt = time.Now()
	r.docs[id] = d
	return r.save()
}

func (r *Registry) Get(id string) (DocumentRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	return d, ok
}

// Completed lists an owner's completed documents, most recent first.
func (r *Registry) Completed(owner string) []DocumentRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []DocumentRecord
	for _, d := range r.docs {
		if d.Owner == owner && d.Status == StatusCompleted {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}
