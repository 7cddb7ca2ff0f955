package structure

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// Analyzer fills in the structural fields of a parsed document.
type Analyzer struct {
	detector *Detector
}

// NewAnalyzer returns an Analyzer that uses detector when a document arrives
// without headings. A nil detector uses the default patterns.
func NewAnalyzer(detector *Detector) *Analyzer {
	if detector == nil {
		detector = NewDetector(nil)
	}
	return &Analyzer{detector: detector}
}

// Analyze populates pages, headings, sections and counts in place. Headings
// supplied by the parser are kept as they are.
func (a *Analyzer) Analyze(doc *doctree.ParsedDocument) {
	if doc == nil {
		return
	}

	if len(doc.Pages) == 0 {
		doc.Pages = ExtractPages(doc.FullText, doc.PageCount)
	} else if doc.FullText == "" {
		texts := make([]string, len(doc.Pages))
		for i, p := range doc.Pages {
			texts[i] = p.Text
		}
		doc.FullText = strings.Join(texts, pageBreak)
	}
	doc.PageCount = max(doc.PageCount, len(doc.Pages))

	if len(doc.Headings) == 0 {
		doc.Headings = a.detector.Detect(doc.Pages)
	}
	doc.Sections = BuildSections(doc.Pages, doc.Headings)

	doc.CharCount = utf8.RuneCountInString(doc.FullText)
	doc.WordCount = len(strings.Fields(doc.FullText))
}
