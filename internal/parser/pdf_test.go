package parser

import (
	"reflect"
	"strings"
	"testing"
)

func TestBlankPages(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{"no pages", nil, true},
		{"all empty", []string{"", ""}, true},
		{"whitespace only", []string{" \n\t", "\f"}, true},
		{"one page with text", []string{"", "  text  ", ""}, false},
	}
	for _, tt := range tests {
		if got := blankPages(tt.pages); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestSplitPages(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		// pdftotext ends every page with a form feed.
		{"pdftotext output", "one\ftwo\fthree\f", []string{"one", "two", "three"}},
		{"no trailing form feed", "one\ftwo", []string{"one", "two"}},
		{"empty middle page keeps numbering", "one\f\fthree\f", []string{"one", "", "three"}},
		{"single page", "only", []string{"only"}},
		{"empty", "", []string{""}},
	}
	for _, tt := range tests {
		if got := splitPages(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestPDFParser_InvalidInput(t *testing.T) {
	p := &PDFParser{}
	if _, err := p.Parse(strings.NewReader("not a pdf"), "broken.pdf"); err == nil {
		t.Fatal("expected error for invalid pdf")
	}
}
