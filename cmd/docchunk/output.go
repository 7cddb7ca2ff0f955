package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/pipeline"
	"github.com/dgallion1/docchunk/internal/structure"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))

	// boxStyle frames the per-file summary.
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

func printFileResult(w io.Writer, r pipeline.FileResult, showText bool) {
	if r.Err != nil {
		fmt.Fprintln(w, errorStyle.Render("✗ "+r.Path)+" "+r.Err.Error())
		return
	}

	o := r.Outcome
	res := o.Result
	if !res.Success {
		fmt.Fprintln(w, errorStyle.Render("✗ "+r.Path)+" "+res.Error.Error())
		return
	}

	s := res.Stats
	summary := strings.Join([]string{
		successStyle.Render("✓ ") + titleStyle.Render(o.Document.Title) + " " + dimStyle.Render(r.Path),
		fmt.Sprintf("%s  %d pages  %d words  %d headings",
			o.Document.Format, o.Document.PageCount, o.Document.WordCount, len(o.Document.Headings)),
		fmt.Sprintf("%d chunks  %d tokens  avg %d  min %d  max %d",
			s.TotalChunks, s.TotalTokens, s.AverageTokens, s.MinTokens, s.MaxTokens),
		dimStyle.Render(fmt.Sprintf("sections %d  paragraphs %d  merges %d  splits %d",
			s.SectionsProcessed, s.ParagraphsProcessed, s.MergeCount, s.SplitCount)),
	}, "\n")
	fmt.Fprintln(w, boxStyle.Render(summary))

	for _, c := range res.Chunks {
		fmt.Fprintf(w, "  %s %s %s\n",
			dimStyle.Render(fmt.Sprintf("#%-3d", c.Sequence)),
			fmt.Sprintf("%4d tok  %s", c.TokenCount, pageRange(c.Metadata)),
			headingStyle.Render(strings.Join(c.Metadata.HeadingContext, " › ")))
		if showText {
			fmt.Fprintln(w, indent(c.Text, "      "))
		}
	}
}

func pageRange(m doctree.ChunkMetadata) string {
	if m.PageStart == m.PageEnd {
		return fmt.Sprintf("p.%d", m.PageStart)
	}
	return fmt.Sprintf("pp.%d-%d", m.PageStart, m.PageEnd)
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func outlineOf(doc *doctree.ParsedDocument) []*doctree.DocNode {
	return structure.BuildOutline(doc.Sections)
}

func printOutline(w io.Writer, nodes []*doctree.DocNode) {
	var walk func(nodes []*doctree.DocNode, depth int)
	walk = func(nodes []*doctree.DocNode, depth int) {
		for _, n := range nodes {
			title := n.Title
			if title == "" {
				title = dimStyle.Render("(untitled)")
			}
			pages := dimStyle.Render(fmt.Sprintf("p.%d", n.PageStart))
			if n.PageEnd > n.PageStart {
				pages = dimStyle.Render(fmt.Sprintf("pp.%d-%d", n.PageStart, n.PageEnd))
			}
			fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", depth), title, pages)
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
}
