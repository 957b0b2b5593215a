package chunker

import (
	"fmt"
	"strings"
)

// Governor keeps chunks within a token budget by splitting oversized units
// at sentence boundaries.
type Governor struct {
	maxTokens int
}

func NewGovernor(maxTokens int) *Governor {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Governor{maxTokens: maxTokens}
}

func (g *Governor) MaxTokens() int {
	return g.maxTokens
}

// Finalize turns the lines of one unit into chunks. A unit within budget
// becomes one complete chunk; a larger one is packed greedily into split
// chunks of whole sentences. Blank input yields nothing.
func (g *Governor) Finalize(lines []string, loc Location) []Chunk {
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return nil
	}

	title := loc.Title()
	if EstimateTokens(text) <= g.maxTokens {
		return []Chunk{newChunk(text, loc, title, CompleteUnit, 0)}
	}

	// Text without terminators comes back as a single sentence and so
	// becomes one split chunk regardless of size.
	sentences := splitSentences(text)

	var (
		chunks []Chunk
		buf    string
		part   = 1
	)
	for _, s := range sentences {
		candidate := s
		if buf != "" {
			candidate = buf + " " + s
		}

		if EstimateTokens(candidate) > g.maxTokens && buf != "" {
			chunks = append(chunks, newChunk(buf, loc, partTitle(title, part), SplitUnit, part))
			part++
			buf = s
			continue
		}
		buf = candidate
	}

	if strings.TrimSpace(buf) != "" {
		chunks = append(chunks, newChunk(buf, loc, partTitle(title, part), SplitUnit, part))
	}

	return chunks
}

func partTitle(title string, part int) string {
	return fmt.Sprintf("%s (part %d)", title, part)
}

func isTerminator(r rune) bool {
	return r == '।' || r == '॥'
}

// splitSentences cuts after every danda or double danda, keeping the
// terminator with its sentence. A trailing fragment without a terminator is
// kept as the last sentence.
func splitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	for i, r := range text {
		if !isTerminator(r) {
			continue
		}
		end := i + len(string(r))
		switch s := strings.TrimSpace(text[start:end]); {
		case s == "":
		case isOnlyTerminators(s) && len(out) > 0:
			out[len(out)-1] += s
		default:
			out = append(out, s)
		}
		start = end
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isOnlyTerminators(s string) bool {
	for _, r := range s {
		if !isTerminator(r) {
			return false
		}
	}
	return true
}
