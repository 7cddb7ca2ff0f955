package parser

import (
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// TextParser handles plain text files. Form feeds start a new page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.ParsedDocument, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	b := newBuilder(filename)
	for i, page := range splitPages(norm.NFC.String(string(raw))) {
		if i > 0 {
			b.pageBreak()
		}
		for _, para := range textParagraphs(page) {
			b.paragraph(para)
		}
	}
	return b.document(), nil
}

// textParagraphs groups consecutive non-blank lines. Lines have no length limit.
func textParagraphs(text string) []string {
	var paragraphs []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs
}
