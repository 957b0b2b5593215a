package chunker

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Factory builds chunkers that share a token budget.
type Factory struct {
	config Config
	log    *slog.Logger
}

func NewFactory(config Config, log *slog.Logger) *Factory {
	return &Factory{config: config, log: log}
}

// GetChunker picks a chunker for a file. An explicit method wins over the
// file extension.
func (f *Factory) GetChunker(filePath, method string) (Chunker, error) {
	if method != "" {
		return f.GetChunkerByMethod(method)
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".md", ".markdown":
		return NewMarkdownChunker(f.config, f.log), nil
	default:
		return NewLegalChunker(f.config, f.log), nil
	}
}

func (f *Factory) GetChunkerByMethod(method string) (Chunker, error) {
	switch strings.ToLower(method) {
	case "markdown", "md":
		return NewMarkdownChunker(f.config, f.log), nil
	case "legal", "text", "txt":
		return NewLegalChunker(f.config, f.log), nil
	default:
		return nil, fmt.Errorf("unknown chunking method: %s", method)
	}
}

// Legal returns a legal chunker that runs clean over every page first.
func (f *Factory) Legal(clean TextCleaner) *LegalChunker {
	cfg := f.config
	cfg.Clean = clean
	return NewLegalChunker(cfg, f.log)
}
