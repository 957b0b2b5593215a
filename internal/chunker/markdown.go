package chunker

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownChunker segments documents that already carry their structure as
// markdown headings: # is a chapter, ## an article, ### and deeper a
// sub-article.
type MarkdownChunker struct {
	governor *Governor
	log      *slog.Logger
}

func NewMarkdownChunker(config Config, log *slog.Logger) *MarkdownChunker {
	if log == nil {
		log = slog.Default()
	}
	return &MarkdownChunker{governor: NewGovernor(config.MaxTokens), log: log}
}

func (m *MarkdownChunker) Name() string {
	return "markdown"
}

// DocumentStructure summarises the headings of a parsed document.
type DocumentStructure struct {
	HeadingCounts   map[int]int // level -> count
	TotalParagraphs int
}

func (m *MarkdownChunker) Chunk(content, source string) ([]Chunk, error) {
	src := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	structure := m.analyzeStructure(doc)
	if structure.HeadingCounts[1]+structure.HeadingCounts[2]+structure.HeadingCounts[3] == 0 {
		// Let the caller fall back to line-based segmentation.
		return nil, fmt.Errorf("no markdown headings found (paragraphs: %d)", structure.TotalParagraphs)
	}

	m.log.Debug("markdown structure",
		"chunker", m.Name(),
		"headings", structure.HeadingCounts,
		"paragraphs", structure.TotalParagraphs)

	chunks := m.chunkByHeadings(doc, src, source)

	m.log.Debug("markdown chunked", "chunker", m.Name(), "source", source, "chunks", len(chunks))
	return chunks, nil
}

func (m *MarkdownChunker) analyzeStructure(doc ast.Node) DocumentStructure {
	structure := DocumentStructure{HeadingCounts: make(map[int]int)}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			structure.HeadingCounts[node.Level]++
		case *ast.Paragraph:
			structure.TotalParagraphs++
		}
		return ast.WalkContinue, nil
	})

	return structure
}

func (m *MarkdownChunker) chunkByHeadings(doc ast.Node, src []byte, source string) []Chunk {
	var chunks []Chunk
	st := segmentState{chapter: chapterUnknown, article: articleIntro, page: 1}

	flush := func() {
		chunks = append(chunks, m.governor.Finalize(st.lines, st.location(source))...)
		st.lines = nil
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(extractText(node, src))
			if title == "" {
				return ast.WalkSkipChildren, nil
			}
			flush()
			switch {
			case node.Level == 1:
				st.chapter, st.article, st.subArticle = title, articleHeader, ""
			case node.Level == 2:
				st.article, st.subArticle = title, ""
			default:
				st.subArticle = title
			}
			st.lines = []string{title}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.TextBlock, *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				if line := strings.TrimSpace(string(seg.Value(src))); line != "" {
					st.lines = append(st.lines, line)
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	flush()
	return chunks
}

// extractText concatenates the text children of a node.
func extractText(node ast.Node, src []byte) string {
	var buf strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			buf.Write(c.Segment.Value(src))
		default:
			buf.WriteString(extractText(c, src))
		}
	}
	return buf.String()
}
