package chunker

import (
	"log/slog"
	"strings"

	"legal_rag/internal/extract"
)

// LegalChunker segments Nepali statutes into chapter, article and
// sub-article units.
type LegalChunker struct {
	governor *Governor
	clean    TextCleaner
	log      *slog.Logger
}

func NewLegalChunker(config Config, log *slog.Logger) *LegalChunker {
	clean := config.Clean
	if clean == nil {
		clean = func(s string) string { return s }
	}
	if log == nil {
		log = slog.Default()
	}
	return &LegalChunker{
		governor: NewGovernor(config.MaxTokens),
		clean:    clean,
		log:      log,
	}
}

func (c *LegalChunker) Name() string {
	return "legal"
}

// Chunk segments text that has no page structure as a single page.
func (c *LegalChunker) Chunk(content, source string) ([]Chunk, error) {
	return c.Segment([]extract.Page{{Number: 1, Text: content}}, source), nil
}

// segmentState is the cursor of one Segment call.
type segmentState struct {
	chapter    string
	article    string
	subArticle string
	page       int
	lines      []string
}

func (s segmentState) location(source string) Location {
	return Location{
		Chapter:    s.chapter,
		Article:    s.article,
		SubArticle: s.subArticle,
		Page:       s.page,
		Source:     source,
	}
}

// Segment walks the cleaned lines of every page and emits a chunk each time
// a structural boundary closes the unit being built.
func (c *LegalChunker) Segment(pages []extract.Page, source string) []Chunk {
	var chunks []Chunk
	st := segmentState{chapter: chapterUnknown, article: articleIntro, page: 1}

	flush := func() {
		chunks = append(chunks, c.governor.Finalize(st.lines, st.location(source))...)
	}

	for i, p := range pages {
		pageNum := p.Number
		if pageNum <= 0 {
			pageNum = i + 1
		}

		for _, raw := range strings.Split(c.clean(p.Text), "\n") {
			line := strings.TrimSpace(raw)
			if line == "" || IsNoise(line) {
				continue
			}

			m := Classify(line)
			switch m.Kind {
			case MarkerChapter:
				flush()
				st = segmentState{
					chapter: m.Label(),
					article: articleHeader,
					page:    pageNum,
					lines:   []string{line},
				}
			case MarkerArticle, MarkerSection:
				flush()
				st.article = m.Label()
				st.subArticle = ""
				st.page = pageNum
				st.lines = []string{line}
			case MarkerSubArticle:
				if st.subArticle != "" {
					flush()
					st.lines = nil
					st.page = pageNum
				}
				st.subArticle = m.Label()
				st.lines = append(st.lines, line)
			default:
				st.lines = append(st.lines, line)
			}
		}
	}
	flush()

	c.log.Debug("segmented document", "source", source, "pages", len(pages), "chunks", len(chunks))
	return chunks
}
