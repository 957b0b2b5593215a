// Package extract reads source documents into page-ordered raw text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

const maxFileSize = 200 << 20

var (
	ErrEmptyText   = errors.New("no text extracted")
	ErrUnsupported = errors.New("unsupported file type")
)

// Page is the raw text of one page, numbered from 1.
type Page struct {
	Number int
	Text   string
}

// Kind decides how a document is cleaned and segmented.
type Kind string

const (
	KindLegacy   Kind = "legacy"   // Preeti-encoded, needs glyph conversion
	KindUnicode  Kind = "unicode"  // PDF with a Unicode text layer
	KindMarkdown Kind = "markdown" // structured by headings
	KindText     Kind = "text"
)

type Document struct {
	Path  string
	Kind  Kind
	Pages []Page
}

// Text joins all pages.
func (d Document) Text() string {
	parts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}

// SupportedFile reports whether ReadDocument can handle the path.
func SupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// ReadDocument loads a file and classifies it. Empty extractions return
// ErrEmptyText.
func ReadDocument(path string) (Document, error) {
	doc := Document{Path: path}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err := PDFPages(path)
		if err != nil {
			return doc, err
		}
		doc.Pages = pages
		doc.Kind = KindUnicode
		if LooksLegacy(doc.Text()) {
			doc.Kind = KindLegacy
		}

	case ".md", ".markdown", ".txt":
		content, err := readFile(path)
		if err != nil {
			return doc, err
		}
		doc.Pages = []Page{{Number: 1, Text: string(content)}}
		switch {
		case LooksLegacy(string(content)):
			doc.Kind = KindLegacy
		case strings.HasPrefix(strings.ToLower(filepath.Ext(path)), ".m"):
			doc.Kind = KindMarkdown
		default:
			doc.Kind = KindText
		}

	default:
		return doc, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}

	if strings.TrimSpace(doc.Text()) == "" {
		return doc, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyText)
	}
	return doc, nil
}

// PDFPages extracts the plain text of every page. Pages that fail to decode
// are kept as empty so numbering stays aligned.
func PDFPages(path string) ([]Page, error) {
	content, err := readFile(path)
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	n := reader.NumPage()
	pages := make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			pages = append(pages, Page{Number: i})
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	return pages, nil
}

func readFile(path string) ([]byte, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if stat.Size() > maxFileSize {
		return nil, fmt.Errorf("file too large for in-memory extraction: %d bytes", stat.Size())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// LooksLegacy guesses whether text came from a Preeti-style font: such text
// extracts as Latin letters where Devanagari is expected.
func LooksLegacy(text string) bool {
	var latin, devanagari int
	for _, r := range text {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			latin++
		case unicode.Is(unicode.Devanagari, r):
			devanagari++
		}
	}
	if latin == 0 {
		return false
	}
	return devanagari*4 < latin
}
