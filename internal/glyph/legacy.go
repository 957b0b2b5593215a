// Package glyph turns text extracted from legacy Preeti-encoded legal PDFs
// into standard Unicode Devanagari and cleans the artifacts the conversion
// leaves behind.
//
// Preeti places Devanagari glyphs on ASCII and Latin-1 code points, so a PDF
// text layer that "looks" Nepali on screen extracts as Latin soup. Convert
// reverses that mapping; Repairer then applies the correction tables.
package glyph

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Private-use runes standing in for glyphs Preeti draws on the wrong side of
// their consonant cluster. They never survive Convert.
const (
	iMatraMark = '\uE000'
	rephMark   = '\uE001'
)

// preetiSequences are multi-glyph Preeti spellings that must be resolved
// before the single-rune table. Longer sequences come first.
var preetiSequences = []struct{ from, to string }{
	{"cf]", "ओ"},
	{"cf}", "औ"},
	{"cf", "आ"},
	{"O{", "ई"},
	{"P]", "ऐ"},
	{"km", "फ"},
	{"Km", "फ्"},
	{"Qm", "क्त"},
	{"qm", "क्र"},
	{"em", "झ"},
	{"Em", "झ्"},
}

// preetiRunes maps one Preeti code point to its Devanagari rendering.
// Code points absent from the table pass through unchanged.
var preetiRunes = map[rune]string{
	'a': "ब", 'b': "द", 'c': "अ", 'd': "म", 'e': "भ", 'f': "ा", 'g': "न",
	'h': "ज", 'i': "ष्", 'j': "व", 'k': "प", 'l': string(iMatraMark), 'm': "ः",
	'n': "ल", 'o': "य", 'p': "उ", 'q': "त्र", 'r': "च", 's': "क", 't': "त",
	'u': "ग", 'v': "ख", 'w': "ध", 'x': "ह", 'y': "थ", 'z': "श",

	'A': "ब्", 'B': "द्य", 'C': "ऋ", 'D': "म्", 'E': "भ्", 'F': "ँ", 'G': "न्",
	'H': "ज्", 'I': "क्ष्", 'J': "व्", 'K': "प्", 'L': "ी", 'M': "ः", 'N': "ल्",
	'O': "इ", 'P': "ए", 'Q': "त्त", 'R': "च्", 'S': "क्", 'T': "त्", 'U': "ग्",
	'V': "ख्", 'W': "ध्", 'X': "ह्", 'Y': "थ्", 'Z': "श्",

	'0': "०", '1': "१", '2': "२", '3': "३", '4': "४",
	'5': "५", '6': "६", '7': "७", '8': "८", '9': "९",

	'`': "ञ", '~': "ञ्", '!': "ज्ञ", '@': "द्द", '#': "घ", '$': "द्ध", '%': "छ",
	'^': "ट", '&': "ठ", '*': "ड", '(': "ढ", ')': "ण्", '-': "(", '_': ")",
	'=': ".", '+': "ं", '[': "ृ", '{': string(rephMark), ']': "े", '}': "ै",
	'\\': "्", '|': "्र", ';': "स", ':': "स्", '\'': "ु", '"': "ू", '<': "?",
	'.': "।", '>': "श्र", '/': "र", '?': "रु",

	'¡': "ज्ञ्", '¢': "द्घ", '£': "घ्", '¤': "झ्", '¥': "र्", '§': "ट्ट",
	'©': "र", '«': "्र", '®': "+", '°': "ङ्क", '±': "+", '´': "झ", '¶': "ठ्ठ",
	'¿': "रू", 'Å': "हृ", 'Æ': "”", 'Ë': "ङ्ग", 'Ì': "न्न", 'Í': "ङ्क",
	'Î': "ङ्ख", 'Ò': "ू", 'Ô': "क्ष", 'Ö': "=", 'Ø': "्य", 'Ù': ";", 'Ú': "'",
	'Û': "!", 'Ü': "%", 'Ý': "ट्ठ", 'å': "द्व", 'æ': "“", 'ç': "ॐ", 'é': "ङ्ढ",
	'ê': "ङ्घ", '÷': "/", 'ø': "य्", 'ª': "ङ", '…': "‘", '˜': "ऽ", 'ˆ': "फ्",
}

const consonant = `[\x{0915}-\x{0939}\x{0958}-\x{095F}]`

var (
	// Preeti draws the i-matra before its cluster; Unicode stores it after.
	iMatraRe = regexp.MustCompile(`\x{E000}((?:` + consonant + `\x{094D})*` + consonant + `\x{093C}?)`)

	// Preeti draws the reph after the cluster and its vowel signs; Unicode
	// stores र् before the cluster.
	rephRe = regexp.MustCompile(`((?:` + consonant + `\x{094D})*` + consonant +
		`\x{093C}?[\x{093E}-\x{094C}\x{0901}\x{0902}]*)\x{E001}`)

	// Half form followed by the aa bar is the full consonant.
	halfPlusAa = strings.NewReplacer("्ा", "")

	vowelComposer = strings.NewReplacer(
		"अा", "आ",
		"आे", "ओ",
		"आै", "औ",
		"एे", "ऐ",
		"ाे", "ो",
		"ाै", "ौ",
	)
)

// Convert maps Preeti-encoded text to Unicode Devanagari. Runes outside the
// Preeti alphabet (including Devanagari already present) are kept as they are.
func Convert(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) * 2)

	for i := 0; i < len(s); {
		if seq, ok := matchSequence(s[i:]); ok {
			b.WriteString(seq.to)
			i += len(seq.from)
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		if mapped, ok := preetiRunes[r]; ok {
			b.WriteString(mapped)
		} else {
			b.WriteRune(r)
		}
		i += size
	}

	out := halfPlusAa.Replace(b.String())
	out = iMatraRe.ReplaceAllString(out, "${1}ि")
	out = rephRe.ReplaceAllString(out, "र्${1}")

	// Marks with no cluster to attach to are emitted in place.
	out = strings.NewReplacer(string(iMatraMark), "ि", string(rephMark), "र्").Replace(out)

	return vowelComposer.Replace(out)
}

func matchSequence(s string) (struct{ from, to string }, bool) {
	for _, seq := range preetiSequences {
		if strings.HasPrefix(s, seq.from) {
			return seq, true
		}
	}
	return struct{ from, to string }{}, false
}
