package structure

import (
	"slices"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// headingSpan is where a heading line sits in the page slice.
type headingSpan struct {
	page      int // Index into pages, not the page number
	lineStart int
	lineEnd   int
	found     bool
}

// BuildSections groups pages into sections bounded by consecutive headings.
//
// Headings must already be in reading order. Without headings the whole document
// is one level-0 section. Text before the first heading becomes an untitled
// level-0 section of its own.
func BuildSections(pages []doctree.Page, headings []doctree.Heading) []doctree.Section {
	if len(pages) == 0 {
		return nil
	}
	last := len(pages) - 1

	if len(headings) == 0 {
		return []doctree.Section{{
			Level:     0,
			PageStart: pages[0].Number,
			PageEnd:   pages[last].Number,
			Text:      joinRange(pages, 0, 0, last, len(pages[last].Text)),
		}}
	}

	spans := make([]headingSpan, len(headings))
	for i, h := range headings {
		spans[i] = locateHeading(pages, h)
	}

	var sections []doctree.Section

	first := spans[0]
	preEndPage, preEndOff := first.page, first.lineStart
	if !first.found {
		preEndPage--
		if preEndPage >= 0 {
			preEndOff = len(pages[preEndPage].Text)
		}
	}
	if preEndPage >= 0 {
		if pre := joinRange(pages, 0, 0, preEndPage, preEndOff); pre != "" {
			end := preEndPage
			if first.found && end > 0 && strings.TrimSpace(pages[end].Text[:preEndOff]) == "" {
				end--
			}
			sections = append(sections, doctree.Section{
				Level:     0,
				PageStart: pages[0].Number,
				PageEnd:   pages[end].Number,
				Text:      pre,
			})
		}
	}

	for i, h := range headings {
		start := spans[i]
		startOff := 0
		if start.found {
			startOff = start.lineEnd
		}

		endPage, endOff := last, len(pages[last].Text)
		nextAtPageTop := false
		if i+1 < len(headings) {
			next := spans[i+1]
			endPage = next.page
			endOff = len(pages[endPage].Text)
			if next.found {
				endOff = next.lineStart
				nextAtPageTop = strings.TrimSpace(pages[endPage].Text[:endOff]) == ""
			}
		}
		if endPage < start.page {
			endPage, endOff = start.page, len(pages[start.page].Text)
		}

		pageEnd := endPage
		if nextAtPageTop && endPage > start.page {
			pageEnd--
		}

		sections = append(sections, doctree.Section{
			Heading:   h.Text,
			Level:     h.Level,
			PageStart: pages[start.page].Number,
			PageEnd:   pages[pageEnd].Number,
			Text:      joinRange(pages, start.page, startOff, endPage, endOff),
		})
	}
	return sections
}

// locateHeading finds the line holding h. Unlocatable headings fall back to the
// start of their page so the whole page text is kept.
func locateHeading(pages []doctree.Page, h doctree.Heading) headingSpan {
	idx := slices.IndexFunc(pages, func(p doctree.Page) bool { return p.Number == h.PageNumber })
	if idx < 0 {
		idx = 0
		if h.PageNumber > pages[len(pages)-1].Number {
			idx = len(pages) - 1
		}
		return headingSpan{page: idx}
	}

	text := pages[idx].Text
	needle := strings.TrimSpace(h.Text)
	if needle == "" {
		return headingSpan{page: idx}
	}

	at := -1
	if pos := h.PositionInPage; pos >= 0 && pos < len(text) {
		if i := strings.Index(text[pos:], needle); i >= 0 {
			at = pos + i
		}
	}
	if at < 0 {
		at = strings.Index(text, needle)
	}
	if at < 0 {
		return headingSpan{page: idx}
	}

	lineStart := strings.LastIndex(text[:at], "\n") + 1
	lineEnd := len(text)
	if nl := strings.Index(text[at:], "\n"); nl >= 0 {
		lineEnd = at + nl
	}
	return headingSpan{page: idx, lineStart: lineStart, lineEnd: lineEnd, found: true}
}

// joinRange concatenates page text from (startPage, startOff) up to (endPage, endOff).
func joinRange(pages []doctree.Page, startPage, startOff, endPage, endOff int) string {
	var parts []string
	for p := startPage; p <= endPage; p++ {
		text := pages[p].Text
		from, to := 0, len(text)
		if p == startPage {
			from = min(startOff, len(text))
		}
		if p == endPage {
			to = min(endOff, len(text))
		}
		if from > to {
			to = len(text)
		}
		if seg := strings.TrimSpace(text[from:to]); seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "\n\n")
}
