package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoc = Location{Chapter: "परिच्छेद–१", Article: "दफा २", Page: 4, Source: "dir/ain.pdf"}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 0, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("नेपाल"))
	assert.Equal(t, 2, EstimateTokens(strings.Repeat("क", 11)))
}

func TestFinalize_CompleteUnit(t *testing.T) {
	g := NewGovernor(800)
	chunks := g.Finalize([]string{"दफा २ पाठ।", "  "}, testLoc)

	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, "दफा २ पाठ।", c.Text)
	assert.Equal(t, CompleteUnit, c.Meta.Type)
	assert.Zero(t, c.Meta.Part)
	assert.Equal(t, "परिच्छेद–१ > दफा २", c.Meta.HierarchicalTitle)
	assert.Equal(t, 4, c.Meta.Page)
	assert.Equal(t, "ain.pdf", c.Meta.SourceFile)
	assert.Equal(t, EstimateTokens(c.Text), c.Meta.EstimatedTokens)
}

func TestFinalize_BlankIsNoop(t *testing.T) {
	g := NewGovernor(800)
	assert.Nil(t, g.Finalize(nil, testLoc))
	assert.Nil(t, g.Finalize([]string{"", " \t"}, testLoc))
}

func TestFinalize_SplitsAtTerminators(t *testing.T) {
	sentence := strings.Repeat("क", 30) + "।" // 7 tokens
	g := NewGovernor(10)

	chunks := g.Finalize([]string{sentence, sentence, sentence}, testLoc)
	require.Len(t, chunks, 3)

	for i, c := range chunks {
		assert.Equal(t, sentence, c.Text)
		assert.Equal(t, SplitUnit, c.Meta.Type)
		assert.Equal(t, i+1, c.Meta.Part)
	}
	assert.Equal(t, "परिच्छेद–१ > दफा २ (part 1)", chunks[0].Meta.HierarchicalTitle)
	assert.Equal(t, "परिच्छेद–१ > दफा २ (part 3)", chunks[2].Meta.HierarchicalTitle)
}

func TestFinalize_PacksGreedily(t *testing.T) {
	short := strings.Repeat("ख", 7) + "॥" // 2 tokens
	g := NewGovernor(10)

	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, short)
	}
	chunks := g.Finalize(lines, testLoc)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat(short+" ", 3)+short, chunks[0].Text)
}

func TestFinalize_OversizedSentenceKeptWhole(t *testing.T) {
	long := strings.Repeat("ग", 200) + "।"
	g := NewGovernor(10)

	chunks := g.Finalize([]string{"छोटो।", long, "अर्को।"}, testLoc)
	require.Len(t, chunks, 3)
	assert.Equal(t, long, chunks[1].Text)
	assert.Greater(t, chunks[1].Meta.EstimatedTokens, 10)
}

func TestFinalize_NoTerminators(t *testing.T) {
	text := strings.Repeat("घ ", 100)
	g := NewGovernor(10)

	chunks := g.Finalize([]string{text}, testLoc)
	require.Len(t, chunks, 1)
	assert.Equal(t, SplitUnit, chunks[0].Meta.Type)
	assert.Equal(t, 1, chunks[0].Meta.Part)
	assert.Equal(t, strings.TrimSpace(text), chunks[0].Text)
}

func TestFinalize_Bound(t *testing.T) {
	var lines []string
	for i := 1; i < 40; i++ {
		lines = append(lines, strings.Repeat("च", i*3)+"।")
	}
	g := NewGovernor(25)

	for _, c := range g.Finalize(lines, testLoc) {
		if c.Meta.EstimatedTokens <= g.MaxTokens() {
			continue
		}
		assert.Equal(t, SplitUnit, c.Meta.Type)
		assert.Len(t, splitSentences(c.Text), 1, "only a lone sentence may exceed the budget")
	}
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"एक।", "दुई॥", "तीन"}, splitSentences("एक। दुई॥ तीन"))
	assert.Equal(t, []string{"एक।।"}, splitSentences("एक।।"))
	assert.Equal(t, []string{"।"}, splitSentences("।"))
	assert.Empty(t, splitSentences("   "))
}

func TestMetadata_Map(t *testing.T) {
	m := Metadata{
		Chapter:           "परिच्छेद–१",
		Article:           "दफा २",
		HierarchicalTitle: "परिच्छेद–१ > दफा २ (part 2)",
		Page:              3,
		SourceFile:        "ain.pdf",
		Type:              SplitUnit,
		EstimatedTokens:   12,
		Part:              2,
	}
	assert.Equal(t, m, MetadataFromMap(m.ToMap()))

	m.Type, m.Part = CompleteUnit, 0
	assert.NotContains(t, m.ToMap(), KeyPart)
}
