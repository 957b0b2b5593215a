package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal_rag/internal/chunker"
	"legal_rag/internal/llm"
	"legal_rag/internal/logger"
	"legal_rag/internal/retrieval"
)

type fakeRetriever struct {
	chunks []retrieval.RetrievedChunk
	err    error
	reqs   []retrieval.Request
}

func (f *fakeRetriever) Retrieve(_ context.Context, req retrieval.Request) ([]retrieval.RetrievedChunk, error) {
	f.reqs = append(f.reqs, req)
	return f.chunks, f.err
}

type fakeCompleter struct {
	answer string
	err    error
	system string
	prompt string
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system, f.prompt = system, user
	return f.answer, f.err
}

func chunk(text, title string, src retrieval.Source) retrieval.RetrievedChunk {
	return retrieval.RetrievedChunk{
		ID:     title,
		Text:   text,
		Meta:   chunker.Metadata{HierarchicalTitle: title},
		Score:  0.9,
		Source: src,
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("  चोरीको सजाय के हो?  ", []retrieval.RetrievedChunk{
		chunk("दफा १२६ चोरी गर्नेलाई सजाय हुनेछ।", "परिच्छेद–५ > दफा १२६", retrieval.SourcePermanent),
		chunk("दफा १२७ थप सजाय।", "", retrieval.SourcePrivate),
	}, 0)

	assert.True(t, strings.HasPrefix(prompt, "तपाईं एक नेपाली कानुनी सहायक हुनुहुन्छ।"))
	assert.Contains(t, prompt, "[स्रोत 1] परिच्छेद–५ > दफा १२६\nदफा १२६ चोरी गर्नेलाई सजाय हुनेछ।\n\n---\n\n[स्रोत 2]\nदफा १२७ थप सजाय।")
	assert.Contains(t, prompt, "प्रश्न (Question): चोरीको सजाय के हो?\n")
	assert.True(t, strings.HasSuffix(prompt, "उत्तर (Answer):"))
}

func TestBuildPrompt_Budget(t *testing.T) {
	question := "प्रश्न?"
	fixed := utf8.RuneCountInString(BuildPrompt(question, nil, 0))
	long := strings.Repeat("क", 400)
	chunks := []retrieval.RetrievedChunk{
		chunk(long, "दफा १", retrieval.SourcePermanent),
		chunk(long, "दफा २", retrieval.SourcePermanent),
	}

	prompt := BuildPrompt(question, chunks, fixed+600)
	assert.LessOrEqual(t, utf8.RuneCountInString(prompt), fixed+600)
	assert.Contains(t, prompt, "[स्रोत 1] दफा १")
	assert.Contains(t, prompt, "[स्रोत 2]")
	assert.Contains(t, prompt, "कक...\n\nप्रश्न (Question)")

	prompt = BuildPrompt(question, chunks, fixed+200)
	assert.LessOrEqual(t, utf8.RuneCountInString(prompt), fixed+200)
	assert.Contains(t, prompt, "[स्रोत 1]")
	assert.NotContains(t, prompt, "[स्रोत 2]")
}

func TestAssistant_Answers(t *testing.T) {
	r := &fakeRetriever{chunks: []retrieval.RetrievedChunk{
		chunk("A", "दफा १", retrieval.SourcePermanent),
		chunk("B", "दफा २", retrieval.SourcePermanent),
		chunk("C", "दफा ३", retrieval.SourcePrivate),
	}}
	c := &fakeCompleter{answer: "[स्रोत 1] अनुसार ..."}
	a := NewAssistant(r, c, nil, 5, 0, logger.Discard())

	ans, err := a.Ask(context.Background(), Question{Text: "प्रश्न", Source: "both"})
	require.NoError(t, err)

	assert.Equal(t, "[स्रोत 1] अनुसार ...", ans.Text)
	assert.False(t, ans.Fallback)
	assert.Equal(t, retrieval.ModeBoth, ans.Mode)
	assert.Equal(t, map[retrieval.Source]int{retrieval.SourcePermanent: 2, retrieval.SourcePrivate: 1}, ans.Sources)
	assert.Equal(t, systemPrompt, c.system)
	assert.Contains(t, c.prompt, "[स्रोत 3] दफा ३\nC")
	require.Len(t, r.reqs, 1)
	assert.Equal(t, 5, r.reqs[0].TopK)
}

func TestAssistant_NoContext(t *testing.T) {
	c := &fakeCompleter{answer: "unused"}
	a := NewAssistant(&fakeRetriever{}, c, nil, 5, 0, logger.Discard())

	ans, err := a.Ask(context.Background(), Question{Text: "प्रश्न"})
	require.NoError(t, err)
	assert.Equal(t, NoContextAnswer, ans.Text)
	assert.Zero(t, c.calls)
	assert.Equal(t, retrieval.ModePermanentOnly, ans.Mode)
}

func TestAssistant_Fallbacks(t *testing.T) {
	t.Run("completion fails", func(t *testing.T) {
		r := &fakeRetriever{chunks: []retrieval.RetrievedChunk{chunk("A", "दफा १", retrieval.SourcePermanent)}}
		a := NewAssistant(r, &fakeCompleter{err: errors.New("rate limited")}, nil, 5, 0, logger.Discard())

		ans, err := a.Ask(context.Background(), Question{Text: "प्रश्न"})
		require.NoError(t, err)
		assert.Equal(t, llm.FallbackAnswer, ans.Text)
		assert.True(t, ans.Fallback)
		assert.Len(t, ans.Chunks, 1)
	})

	t.Run("retrieval fails", func(t *testing.T) {
		c := &fakeCompleter{}
		a := NewAssistant(&fakeRetriever{err: errors.New("embed query")}, c, nil, 5, 0, logger.Discard())

		ans, err := a.Ask(context.Background(), Question{Text: "प्रश्न"})
		require.NoError(t, err)
		assert.Equal(t, llm.FallbackAnswer, ans.Text)
		assert.True(t, ans.Fallback)
		assert.Zero(t, c.calls)
	})
}

func TestAssistant_PrivateCollection(t *testing.T) {
	reg, err := OpenRegistry("")
	require.NoError(t, err)
	_, err = reg.Create("d1", "u1", "a.pdf")
	require.NoError(t, err)
	require.NoError(t, reg.Finish("d1", Result{Success: true, CollectionID: "user_u1_doc_d1"}))
	_, err = reg.Create("d2", "u1", "b.pdf")
	require.NoError(t, err)

	r := &fakeRetriever{}
	a := NewAssistant(r, &fakeCompleter{}, reg, 5, 0, logger.Discard())

	_, err = a.Ask(context.Background(), Question{Text: "प्रश्न", Owner: "u1"})
	require.NoError(t, err)
	assert.Equal(t, retrieval.ModePrivateOnly, r.reqs[0].Mode)
	assert.Equal(t, []string{"user_u1_doc_d1"}, r.reqs[0].PrivateCollections)

	_, err = a.Ask(context.Background(), Question{Text: "प्रश्न", Owner: "u2"})
	require.NoError(t, err)
	assert.Equal(t, retrieval.ModePermanentOnly, r.reqs[1].Mode)
	assert.Empty(t, r.reqs[1].PrivateCollections)

	_, err = a.Ask(context.Background(), Question{Text: "प्रश्न", Owner: "u1", DocumentID: "d2"})
	assert.ErrorIs(t, err, ErrInput)

	_, err = a.Ask(context.Background(), Question{Text: "प्रश्न", Owner: "u2", DocumentID: "d1"})
	assert.ErrorIs(t, err, ErrUnknownDocument)
}

func TestAssistant_SearchesEveryCompletedUpload(t *testing.T) {
	reg, err := OpenRegistry("")
	require.NoError(t, err)
	for _, id := range []string{"d1", "d2"} {
		_, err = reg.Create(id, "u", id+".pdf")
		require.NoError(t, err)
		require.NoError(t, reg.Finish(id, Result{Success: true, CollectionID: CollectionName("u", id)}))
		time.Sleep(2 * time.Millisecond)
	}

	r := &fakeRetriever{}
	a := NewAssistant(r, &fakeCompleter{}, reg, 5, 0, logger.Discard())

	for _, source := range []string{"private", "both", "auto"} {
		_, err = a.Ask(context.Background(), Question{Text: "प्रश्न", Owner: "u", Source: source})
		require.NoError(t, err)
	}
	require.Len(t, r.reqs, 3)
	for _, req := range r.reqs {
		assert.Equal(t, []string{"user_u_doc_d2", "user_u_doc_d1"}, req.PrivateCollections)
	}
	assert.Equal(t, retrieval.ModePrivateOnly, r.reqs[0].Mode)
	assert.Equal(t, retrieval.ModeBoth, r.reqs[1].Mode)
	assert.Equal(t, retrieval.ModePrivateOnly, r.reqs[2].Mode)

	_, err = a.Ask(context.Background(), Question{Text: "प्रश्न", Owner: "u", DocumentID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user_u_doc_d1"}, r.reqs[3].PrivateCollections)
}

func TestAssistant_InvalidRequest(t *testing.T) {
	a := NewAssistant(&fakeRetriever{}, &fakeCompleter{}, nil, 5, 0, logger.Discard())

	_, err := a.Ask(context.Background(), Question{Text: "   "})
	assert.ErrorIs(t, err, ErrInput)

	_, err = a.Ask(context.Background(), Question{Text: "प्रश्न", Source: "everywhere"})
	assert.ErrorIs(t, err, ErrInput)
}
