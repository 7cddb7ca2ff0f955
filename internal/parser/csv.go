package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// csvBatchSize is the number of data rows per paragraph.
const csvBatchSize = 20

// CSVParser handles CSV files. The header row is repeated at the top of every
// batch so each paragraph stands on its own.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.ParsedDocument, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	b := newBuilder(filename)
	if len(records) == 0 {
		return b.document(), nil
	}

	headers := records[0]
	dataRows := records[1:]
	if len(dataRows) == 0 {
		b.paragraph("Headers: " + strings.Join(headers, ", "))
		return b.document(), nil
	}

	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))

		var text strings.Builder
		// 1-indexed, skip header
		fmt.Fprintf(&text, "Rows %d-%d. Headers: %s\n", i+2, end+1, strings.Join(headers, ", "))
		for _, row := range dataRows[i:end] {
			for j, cell := range row {
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
				if j < len(row)-1 {
					text.WriteString(", ")
				}
			}
			text.WriteString("\n")
		}
		b.paragraph(text.String())
	}
	return b.document(), nil
}
