package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type MarkerKind int

const (
	MarkerNone MarkerKind = iota
	MarkerChapter
	MarkerArticle
	MarkerSection
	MarkerSubArticle
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerChapter:
		return "chapter"
	case MarkerArticle:
		return "article"
	case MarkerSection:
		return "section"
	case MarkerSubArticle:
		return "sub_article"
	default:
		return "none"
	}
}

// Marker is the structural role of one cleaned line. Number keeps the
// Devanagari digits as written.
type Marker struct {
	Kind   MarkerKind
	Number string
}

// Label is the presentational name used in chunk metadata.
func (m Marker) Label() string {
	switch m.Kind {
	case MarkerChapter:
		return "परिच्छेद–" + m.Number
	case MarkerArticle, MarkerSection:
		return "दफा " + m.Number
	case MarkerSubArticle:
		return "(" + m.Number + ")"
	default:
		return ""
	}
}

// Tried in this order; first match wins. Spacing classes include \p{Zs},
// so NBSP separates a keyword from its numeral.
var boundaryPatterns = []struct {
	kind MarkerKind
	re   *regexp.Regexp
}{
	{MarkerChapter, regexp.MustCompile(`^[\s\p{Zs}]*परिच्छेद[–—\-\s\p{Zs}]+([०-९]+)`)},
	{MarkerArticle, regexp.MustCompile(`^[\s\p{Zs}]*दफा[\s\p{Zs}]+([०-९]+)`)},
	{MarkerSection, regexp.MustCompile(`^[\s\p{Zs}]*([०-९]+)\.`)},
	{MarkerSubArticle, regexp.MustCompile(`^[\s\p{Zs}]*(?:उपदफा[\s\p{Zs}]+)?\(([०-९]+)\)`)},
}

// Classify reports which structural boundary, if any, a line opens.
func Classify(line string) Marker {
	for _, p := range boundaryPatterns {
		if m := p.re.FindStringSubmatch(line); m != nil {
			return Marker{Kind: p.kind, Number: m[1]}
		}
	}
	return Marker{Kind: MarkerNone}
}

// Artifact left by the Law Commission footer URL after legacy conversion.
const corruptedURLSignature = "धधध।बिधअयफफष्ककष्यल।नयख।लउ"

var (
	bareNumeralRe = regexp.MustCompile(`^[\s\p{Zs}]*[०-९]+[\s\p{Zs}]*$`)
	junkGlyphRe   = regexp.MustCompile(`^[\s\p{Zs}]*[द्दण्घक्ष्]+[\s\p{Zs}]*$`)

	boilerplateIndicators = []string{"lawcommission", "www"}
)

// IsNoise reports header, footer and page-number debris that carries no
// legal content.
func IsNoise(line string) bool {
	if strings.Contains(line, corruptedURLSignature) {
		return true
	}
	if bareNumeralRe.MatchString(line) || junkGlyphRe.MatchString(line) {
		return true
	}

	lower := strings.ToLower(line)
	for _, ind := range boilerplateIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}

	return utf8.RuneCountInString(strings.TrimSpace(line)) < 3
}
