package glyph

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const halanta = "्"

var (
	// A Devanagari run ending in halanta, followed by whitespace (NBSP included),
	// comma or danda.
	trailingHalantaRe = regexp.MustCompile(`([\x{0900}-\x{097F}]+\x{094D})([\s\p{Zs},\x{0964}])`)

	repeatedSpaces = regexp.MustCompile(` {2,}`)

	zeroWidth = strings.NewReplacer("\u200d", "", "\u200c", "")
)

// Repairer applies a Rules table. It holds no mutable state and is safe for
// concurrent use.
type Repairer struct {
	rules Rules
	keep  map[string]struct{}
}

func NewRepairer(rules Rules) *Repairer {
	keep := make(map[string]struct{}, len(rules.KeepHalanta))
	for _, w := range rules.KeepHalanta {
		keep[w] = struct{}{}
	}
	return &Repairer{rules: rules, keep: keep}
}

// Repair converts legacy-font text and cleans it.
func (r *Repairer) Repair(raw string) string {
	return r.Clean(Convert(strings.ToValidUTF8(raw, "")))
}

// Clean runs the correction passes only. Use it for text that is already
// Unicode Devanagari.
func (r *Repairer) Clean(text string) string {
	text = strings.ToValidUTF8(text, "")

	for _, rep := range r.rules.Replacements {
		text = strings.ReplaceAll(text, rep.From, rep.To)
	}

	text = trailingHalantaRe.ReplaceAllStringFunc(text, r.stripHalanta)

	for _, fix := range r.rules.WordFixes {
		text = strings.ReplaceAll(text, fix.From, fix.To)
	}

	text = zeroWidth.Replace(text)
	text = repeatedSpaces.ReplaceAllString(text, " ")

	return norm.NFC.String(text)
}

func (r *Repairer) stripHalanta(match string) string {
	sub := trailingHalantaRe.FindStringSubmatch(match)
	word, delim := sub[1], sub[2]

	if _, ok := r.keep[word]; ok {
		return match
	}
	if utf8.RuneCountInString(word) < 3 {
		return match
	}
	return strings.TrimSuffix(word, halanta) + delim
}

var defaultRepairer = NewRepairer(DefaultRules())

// Repair runs the default Repairer.
func Repair(raw string) string {
	return defaultRepairer.Repair(raw)
}

// Clean runs the default Repairer's correction passes.
func Clean(text string) string {
	return defaultRepairer.Clean(text)
}
