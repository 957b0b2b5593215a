package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"legal_rag/internal/chunker"
	"legal_rag/internal/glyph"
	"legal_rag/internal/logger"
	"legal_rag/internal/vectorstore"
)

const sampleLaw = "परिच्छेद–१ प्रारम्भिक\n" +
	"दफा १ संक्षिप्त नाम र प्रारम्भ।\n" +
	"यो ऐनको नाम मुलुकी ऐन रहेको छ।\n" +
	"दफा २ परिभाषा।\n" +
	"विषय वा प्रसङ्गले अर्को अर्थ नलागेमा यस ऐनमा।\n"

// fakeEmbedder returns a fixed unit vector per text.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	texts int
	err   error
	panic bool
	block chan struct{} // Embed waits for it to close when set
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panic {
		panic("embedder exploded")
	}
	f.calls++
	f.texts += len(texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts
}

func newTestPipeline(t *testing.T, emb *fakeEmbedder) (*Pipeline, *vectorstore.Store) {
	t.Helper()
	store, err := vectorstore.Open("", logger.Discard())
	require.NoError(t, err)

	chunkers := chunker.NewFactory(chunker.Config{MaxTokens: chunker.DefaultMaxTokens}, logger.Discard())
	return NewPipeline(chunkers, glyph.NewRepairer(glyph.DefaultRules()), emb, store, 2, logger.Discard()), store
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
