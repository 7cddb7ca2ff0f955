package structure

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// Classifier decides whether a single line is a heading and at which level.
type Classifier interface {
	Classify(line string) (level int, ok bool)
}

// DefaultPatterns are the heading patterns in priority order. Index decides level:
// the first two are level 1, the next two level 2, everything after level 3.
var DefaultPatterns = []string{
	`(?i)^(chapter|part)\s+([0-9]+|[ivxlcdm]+)\b`,
	`^#\s+\S`,
	`^[0-9]+\.?\s+[A-Z]`,
	`^##\s+\S`,
	`^[0-9]+\.[0-9]+(\.[0-9]+)*\.?\s+\S`,
	`^#{3,6}\s+\S`,
	`^[A-Z][A-Z0-9 ,:;&'()\-]{3,}$`,
}

const (
	DefaultMinHeadingLength = 3
	DefaultMaxHeadingLength = 100
)

// PatternClassifier matches lines against an ordered list of regular expressions.
type PatternClassifier struct {
	patterns []*regexp.Regexp // nil entries failed to compile and never match
}

// NewPatternClassifier compiles patterns in order. Patterns that do not compile
// keep their slot, so the levels of the remaining patterns are unchanged.
func NewPatternClassifier(patterns []string) *PatternClassifier {
	c := &PatternClassifier{patterns: make([]*regexp.Regexp, len(patterns))}
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		c.patterns[i] = re
	}
	return c
}

// Classify returns the level of the first pattern matching line.
func (c *PatternClassifier) Classify(line string) (int, bool) {
	for i, re := range c.patterns {
		if re == nil {
			continue
		}
		if re.MatchString(line) {
			return levelForPattern(i), true
		}
	}
	return 0, false
}

func levelForPattern(index int) int {
	switch {
	case index < 2:
		return 1
	case index < 4:
		return 2
	default:
		return 3
	}
}

// Detector finds heading lines in pages.
type Detector struct {
	Classifier Classifier
	MinLength  int // Minimum trimmed line length in runes
	MaxLength  int // Maximum trimmed line length in runes
}

// NewDetector returns a Detector using classifier and the default length bounds.
// A nil classifier uses DefaultPatterns.
func NewDetector(classifier Classifier) *Detector {
	if classifier == nil {
		classifier = NewPatternClassifier(DefaultPatterns)
	}
	return &Detector{
		Classifier: classifier,
		MinLength:  DefaultMinHeadingLength,
		MaxLength:  DefaultMaxHeadingLength,
	}
}

// Detect scans every line of every page and returns headings in reading order.
func (d *Detector) Detect(pages []doctree.Page) []doctree.Heading {
	var headings []doctree.Heading
	for _, page := range pages {
		offset := 0
		for _, line := range strings.SplitAfter(page.Text, "\n") {
			start := offset
			offset += len(line)

			trimmed := strings.TrimSpace(line)
			level, ok := d.classify(trimmed)
			if !ok {
				continue
			}
			headings = append(headings, doctree.Heading{
				Text:           cleanHeading(trimmed),
				Level:          level,
				PageNumber:     page.Number,
				PositionInPage: start + strings.Index(line, trimmed),
			})
		}
	}
	return headings
}

func (d *Detector) classify(trimmed string) (int, bool) {
	n := utf8.RuneCountInString(trimmed)
	if n == 0 || n < d.MinLength || n > d.MaxLength {
		return 0, false
	}
	return d.Classifier.Classify(trimmed)
}

// cleanHeading drops markdown heading markers; the rest of the line is kept verbatim
// so it can still be located in the page text.
func cleanHeading(line string) string {
	if !strings.HasPrefix(line, "#") {
		return line
	}
	if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
		return t
	}
	return line
}
