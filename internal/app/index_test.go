package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal_rag/internal/logger"
)

func TestKnowledgeLoader_SkipAndForce(t *testing.T) {
	emb := &fakeEmbedder{}
	p, store := newTestPipeline(t, emb)
	loader := NewKnowledgeLoader(p, store, "permanent_knowledge", 2, logger.Discard())

	dir := t.TempDir()
	writeFile(t, dir, "muluki_ain.txt", sampleLaw)
	writeFile(t, dir, "nested/samvidhan.md", "# भाग १\n\n## धारा १\n\nसंविधान मूल कानुन हो।\n")
	writeFile(t, dir, "readme.docx", "ignored")
	writeFile(t, dir, "blank.txt", "   ")

	sum, err := loader.Load(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, LoadSummary{Files: 3, Indexed: 2, Failed: 1, Chunks: 5}, sum)
	assert.Equal(t, 5, store.Count("permanent_knowledge"))
	assert.True(t, store.Has(context.Background(), "permanent_knowledge", "muluki_ain.txt_chunk_0"))
	assert.True(t, store.Has(context.Background(), "permanent_knowledge", "nested__samvidhan.md_chunk_0"))
	embedded := emb.count()

	sum, err = loader.Load(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Skipped)
	assert.Zero(t, sum.Indexed)
	assert.Equal(t, embedded, emb.count())

	sum, err = loader.Load(context.Background(), dir, true)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Indexed)
	assert.Zero(t, sum.Skipped)
	assert.Equal(t, 5, store.Count("permanent_knowledge"))
}

func TestKnowledgeLoader_MissingDir(t *testing.T) {
	p, store := newTestPipeline(t, &fakeEmbedder{})
	loader := NewKnowledgeLoader(p, store, "permanent_knowledge", 1, logger.Discard())

	dir := filepath.Join(t.TempDir(), "permanent_knowledge")
	sum, err := loader.Load(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, LoadSummary{}, sum)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSourceID(t *testing.T) {
	assert.Equal(t, "ain.pdf", sourceID("ain.pdf"))
	assert.Equal(t, "civil__code.pdf", sourceID(filepath.Join("civil", "code.pdf")))
}
