package parser

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// builder accumulates NFC-normalized page text and the headings found by a
// structural parser.
type builder struct {
	title    string
	format   string
	pages    []string
	cur      strings.Builder
	headings []doctree.Heading
}

func newBuilder(filename string) *builder {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	return &builder{
		title:  strings.TrimSuffix(base, ext),
		format: strings.TrimPrefix(strings.ToLower(ext), "."),
	}
}

// normalize applies NFC and drops page-break characters from content.
func normalize(s string) string {
	return strings.ReplaceAll(norm.NFC.String(s), "\f", "\n")
}

// paragraph appends a block of text separated from the previous one by a blank line.
func (b *builder) paragraph(text string) {
	text = strings.TrimSpace(normalize(text))
	if text == "" {
		return
	}
	if b.cur.Len() > 0 {
		b.cur.WriteString("\n\n")
	}
	b.cur.WriteString(text)
}

// heading appends a single-line heading and records where it starts.
func (b *builder) heading(text string, level int) {
	text = strings.Join(strings.Fields(normalize(text)), " ")
	if text == "" {
		return
	}
	if b.cur.Len() > 0 {
		b.cur.WriteString("\n\n")
	}
	b.headings = append(b.headings, doctree.Heading{
		Text:           text,
		Level:          max(level, 1),
		PageNumber:     len(b.pages) + 1,
		PositionInPage: b.cur.Len(),
	})
	b.cur.WriteString(text)
}

// splitPages cuts text at form feeds. A single trailing form feed ends the last
// page rather than starting an empty one.
func splitPages(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\f"), "\f")
}

func (b *builder) pageBreak() {
	b.pages = append(b.pages, b.cur.String())
	b.cur.Reset()
}

// document closes the current page and returns the result.
func (b *builder) document() *doctree.ParsedDocument {
	texts := append(b.pages[:len(b.pages):len(b.pages)], b.cur.String())

	doc := &doctree.ParsedDocument{
		Title:     b.title,
		Format:    b.format,
		FullText:  strings.Join(texts, "\f"),
		Headings:  b.headings,
		PageCount: len(texts),
		Pages:     make([]doctree.Page, len(texts)),
	}
	for i, t := range texts {
		doc.Pages[i] = doctree.Page{Number: i + 1, Text: t, CharCount: utf8.RuneCountInString(t)}
	}
	return doc
}
