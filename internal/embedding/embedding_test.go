package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal_rag/internal/config"
	"legal_rag/internal/guard"
	"legal_rag/internal/logger"
)

// recorder returns a unit vector per text and remembers every call.
type recorder struct {
	calls [][]string
	err   error
}

func (r *recorder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	r.calls = append(r.calls, texts)
	if r.err != nil {
		return nil, r.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func TestEmbedPassages_BatchesWithPrefix(t *testing.T) {
	r := &recorder{}
	vecs, err := EmbedPassages(context.Background(), r, []string{"क", "ख", "ग", "घ", "ङ"}, 2)
	require.NoError(t, err)

	assert.Len(t, vecs, 5)
	require.Len(t, r.calls, 3)
	assert.Equal(t, []string{"passage: क", "passage: ख"}, r.calls[0])
	assert.Equal(t, []string{"passage: ङ"}, r.calls[2])
}

func TestEmbedPassages_Failure(t *testing.T) {
	boom := errors.New("backend down")
	_, err := EmbedPassages(context.Background(), &recorder{err: boom}, []string{"क"}, 0)
	assert.ErrorIs(t, err, boom)
}

func TestEmbedPassages_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &recorder{}
	_, err := EmbedPassages(ctx, r, []string{"क"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, r.calls)
}

type short struct{}

func (short) Embed(context.Context, []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}

func TestEmbedPassages_CountMismatch(t *testing.T) {
	_, err := EmbedPassages(context.Background(), short{}, []string{"क", "ख"}, 8)
	assert.Error(t, err)
}

func TestEmbedQuery(t *testing.T) {
	r := &recorder{}
	v, err := EmbedQuery(context.Background(), r, "नागरिकता के हो?")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 0}, v)
	assert.Equal(t, [][]string{{"query: नागरिकता के हो?"}}, r.calls)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}

func TestFuncEmbedder(t *testing.T) {
	f := &FuncEmbedder{fn: func(_ context.Context, text string) ([]float32, error) {
		return []float32{float32(len(text)), 0, 0}, nil
	}}

	vecs, err := f.Embed(context.Background(), []string{"ab", "abc"})
	require.NoError(t, err)
	for _, v := range vecs {
		var sum float64
		for _, x := range v {
			sum += float64(x * x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
	}

	empty := &FuncEmbedder{fn: func(context.Context, string) ([]float32, error) { return nil, nil }}
	_, err = empty.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestGuarded(t *testing.T) {
	r := &recorder{}
	g := NewGuarded(r, guard.New("test", 0, logger.Discard()))

	vecs, err := g.Embed(context.Background(), []string{"क"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Len(t, r.calls, 1)
}

func TestNew(t *testing.T) {
	cfg := &config.Config{EmbeddingsProvider: "ollama", EmbeddingsModel: "e5", EmbeddingsURL: "http://localhost:11434/api"}
	e, closer, err := New(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &Guarded{}, e)
	assert.NoError(t, closer.Close())

	cfg.EmbeddingsProvider = "gemini"
	_, _, err = New(context.Background(), cfg, logger.Discard())
	assert.Error(t, err, "gemini without a key")

	cfg.EmbeddingsProvider = "word2vec"
	_, _, err = New(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
}
