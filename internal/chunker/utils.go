package chunker

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	DefaultMaxTokens = 800

	chapterUnknown = "Unknown"
	articleIntro   = "Intro"
	articleHeader  = "Header"

	titleSeparator = " > "
)

// EstimateTokens approximates a token count as a quarter of the rune count.
func EstimateTokens(s string) int {
	return utf8.RuneCountInString(s) / 4
}

// Location is where a unit sits in the document hierarchy.
type Location struct {
	Chapter    string
	Article    string
	SubArticle string
	Page       int
	Source     string
}

// Title builds the breadcrumb for a unit. The Intro and Header article
// placeholders are left out.
func (l Location) Title() string {
	parts := []string{l.Chapter}
	if l.Article != "" && l.Article != articleIntro && l.Article != articleHeader {
		parts = append(parts, l.Article)
	}
	if l.SubArticle != "" {
		parts = append(parts, l.SubArticle)
	}
	return strings.Join(parts, titleSeparator)
}

func newChunk(text string, loc Location, title string, typ ChunkType, part int) Chunk {
	text = strings.TrimSpace(text)

	return Chunk{
		ID:   uuid.NewString(),
		Text: text,
		Meta: Metadata{
			Chapter:           loc.Chapter,
			Article:           loc.Article,
			SubArticle:        loc.SubArticle,
			HierarchicalTitle: title,
			Page:              loc.Page,
			SourceFile:        filepath.Base(loc.Source),
			Type:              typ,
			EstimatedTokens:   EstimateTokens(text),
			Part:              part,
		},
	}
}
