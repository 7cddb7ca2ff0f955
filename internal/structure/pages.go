// Package structure recovers document structure from extracted text: pages,
// heading lines and the flat sections they bound.
package structure

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// pageBreak separates pages in extracted text (pdftotext and our PDF parser both emit it).
const pageBreak = "\f"

// ExtractPages splits raw document text into numbered pages.
//
// Form feeds mark page boundaries when present. Otherwise the text is spread over
// pageCount pages of roughly equal length, breaking only between lines.
func ExtractPages(fullText string, pageCount int) []doctree.Page {
	if strings.TrimSpace(fullText) == "" {
		return nil
	}

	var texts []string
	switch {
	case strings.Contains(fullText, pageBreak):
		// A trailing form feed closes the last page.
		texts = strings.Split(strings.TrimSuffix(fullText, pageBreak), pageBreak)
	case pageCount <= 1:
		texts = []string{fullText}
	default:
		texts = distributeLines(fullText, pageCount)
	}

	pages := make([]doctree.Page, 0, len(texts))
	for i, t := range texts {
		pages = append(pages, doctree.Page{
			Number:    i + 1,
			Text:      t,
			CharCount: utf8.RuneCountInString(t),
		})
	}
	return pages
}

// distributeLines cuts text into pageCount parts of similar rune length.
func distributeLines(text string, pageCount int) []string {
	lines := strings.SplitAfter(text, "\n")
	if len(lines) < pageCount {
		pageCount = len(lines)
	}
	total := utf8.RuneCountInString(text)

	pages := make([]string, 0, pageCount)
	var current strings.Builder
	consumed := 0
	for i, line := range lines {
		current.WriteString(line)
		consumed += utf8.RuneCountInString(line)

		remainingPages := pageCount - len(pages) - 1
		if remainingPages <= 0 {
			continue
		}
		remainingLines := len(lines) - i - 1
		boundary := total * (len(pages) + 1) / pageCount
		if consumed >= boundary || remainingLines == remainingPages {
			pages = append(pages, current.String())
			current.Reset()
		}
	}
	return append(pages, current.String())
}
