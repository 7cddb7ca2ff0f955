package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// DOCXParser handles .docx files. Heading styles become structural headings and
// explicit page breaks start new pages.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.ParsedDocument, error) {
	// go-docx needs a ReaderAt+size, so write to temp file.
	tmp, err := os.CreateTemp("", "docchunk-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := newBuilder(filename)
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			text, breaks := docxParagraphText(it)
			if level := docxHeadingLevel(it); level > 0 {
				b.heading(text, level)
			} else {
				b.paragraph(text)
			}
			for range breaks {
				b.pageBreak()
			}
		case *docx.Table:
			b.paragraph(docxTableText(it))
		}
	}
	return b.document(), nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	switch style {
	case "title":
		return 1
	case "heading1", "heading2", "heading3", "heading4", "heading5", "heading6":
		return int(style[len(style)-1] - '0')
	}
	return 0
}

// docxParagraphText returns the paragraph text and the number of page breaks in it.
func docxParagraphText(para *docx.Paragraph) (string, int) {
	var buf strings.Builder
	breaks := 0
	writeRun := func(run *docx.Run) {
		for _, rc := range run.Children {
			switch x := rc.(type) {
			case *docx.Text:
				buf.WriteString(x.Text)
			case *docx.Tab:
				buf.WriteByte('\t')
			case *docx.BarterRabbet:
				if x.Type == "page" {
					breaks++
				} else {
					buf.WriteByte('\n')
				}
			}
		}
	}
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			writeRun(c)
		case *docx.Hyperlink:
			writeRun(&c.Run)
		}
	}
	return strings.TrimSpace(buf.String()), breaks
}

// docxTableText renders a table one row per line with cells separated by " | ".
func docxTableText(t *docx.Table) string {
	var rows []string
	for _, row := range t.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var parts []string
			for _, para := range cell.Paragraphs {
				if text, _ := docxParagraphText(para); text != "" {
					parts = append(parts, text)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		if line := strings.TrimSpace(strings.Join(cells, " | ")); strings.Trim(line, "| ") != "" {
			rows = append(rows, line)
		}
	}
	return strings.Join(rows, "\n")
}
