// Package chunker partitions a structured document into token-bounded chunks.
package chunker

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// Chunker splits documents using a fixed base config and tokenizer. It holds no
// per-call state and is safe for concurrent use.
type Chunker struct {
	cfg     Config
	counter counter
	log     *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithTokenizer replaces the default word-based estimate.
func WithTokenizer(t Tokenizer) Option {
	return func(c *Chunker) {
		if t != nil {
			c.counter.tokenize = t
		}
	}
}

// WithStrictTokenizer makes tokenizer failures fail the call with
// TOKENIZATION_ERROR instead of falling back to the character estimate.
func WithStrictTokenizer() Option {
	return func(c *Chunker) { c.counter.strict = true }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chunker) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Chunker for cfg.
func New(cfg Config, opts ...Option) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Chunker{
		cfg:     cfg,
		counter: counter{tokenize: estimateTokenizer},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.counter.log = c.log
	return c, nil
}

// Config returns the base config.
func (c *Chunker) Config() Config { return c.cfg }

// CountTokens counts text with the configured tokenizer in lenient mode.
func (c *Chunker) CountTokens(text string) int {
	lenient := c.counter
	lenient.strict = false
	return lenient.count(text)
}

// Chunk splits doc into chunks. Failures are reported in the Result; Chunk never
// panics.
func (c *Chunker) Chunk(doc *doctree.ParsedDocument, overrides *Overrides) (res Result) {
	cfg := c.cfg.Apply(overrides)
	if doc == nil {
		return failure(cfg, ErrCodeEmptyDocument, "no document provided", "")
	}
	if err := cfg.Validate(); err != nil {
		return failure(cfg, ErrCodeInvalidConfig, err.Error(), "")
	}
	if !hasText(doc) {
		return failure(cfg, ErrCodeNoTextContent, "document contains no text", "")
	}

	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if tf, ok := v.(tokenizationFailure); ok {
			res = failure(cfg, ErrCodeTokenization, tf.err.Error(), "")
			return
		}
		res = failure(cfg, ErrCodeUnknown, fmt.Sprint(v), string(debug.Stack()))
	}()

	r := reducer{cfg: cfg, count: c.counter.count}
	var (
		stats Stats
		raw   []doctree.Chunk
	)
	if cfg.RespectSectionBoundaries && len(doc.Sections) > 0 {
		raw = c.chunkSections(doc.Sections, r, &stats)
	}
	if len(raw) == 0 {
		// Sections may hold only heading lines; fall back to the page text.
		raw = c.chunkPages(doc, r, &stats)
	}

	chunks, merges := mergeSmall(raw, cfg, c.counter.count)
	stats.MergeCount = merges
	chunks = Renumber(chunks)
	stats.tally(chunks)

	c.log.Debug("chunked document",
		"title", doc.Title,
		"chunks", stats.TotalChunks,
		"tokens", stats.TotalTokens,
		"merges", stats.MergeCount,
		"splits", stats.SplitCount,
	)
	return Result{Success: true, Chunks: chunks, Stats: stats, Config: cfg}
}

func hasText(doc *doctree.ParsedDocument) bool {
	return strings.TrimSpace(doc.FullText) != "" || pagesHaveText(doc.Pages)
}

func pagesHaveText(pages []doctree.Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// chunkSections reduces each section on its own so no chunk crosses a section
// boundary before the merge pass.
func (c *Chunker) chunkSections(sections []doctree.Section, r reducer, stats *Stats) []doctree.Chunk {
	var (
		out     []doctree.Chunk
		crumbs  []crumb
		chapter string
	)
	for _, s := range sections {
		stats.SectionsProcessed++

		if s.Heading != "" && s.Level > 0 {
			for len(crumbs) > 0 && crumbs[len(crumbs)-1].level >= s.Level {
				crumbs = crumbs[:len(crumbs)-1]
			}
			crumbs = append(crumbs, crumb{level: s.Level, title: s.Heading})
			if s.Level == 1 {
				chapter = s.Heading
			}
		}

		meta := doctree.ChunkMetadata{
			PageStart: s.PageStart,
			PageEnd:   s.PageEnd,
		}
		if s.Level > 0 {
			meta.Chapter = chapter
			meta.HeadingContext = copyBreadcrumb(crumbs)
			if s.Level >= 2 {
				meta.Section = s.Heading
			}
		}
		if s.PageStart > 0 {
			for p := s.PageStart; p <= max(s.PageStart, s.PageEnd); p++ {
				meta.Pages = append(meta.Pages, p)
			}
		}

		var f fold
		for _, para := range splitByParagraphs(s.Text) {
			stats.ParagraphsProcessed++
			f = r.addParagraph(f, piece{text: para, tokens: r.count(para)})
		}
		f = f.flush()
		stats.SplitCount += f.splits

		for _, p := range f.out {
			out = append(out, newChunk(p.text, p.tokens, cloneMeta(meta)))
		}
	}
	return out
}

// chunkPages reduces the paragraphs of every page as one stream, letting chunks
// span page breaks. Blank or missing pages fall back to the full text as page 1.
func (c *Chunker) chunkPages(doc *doctree.ParsedDocument, r reducer, stats *Stats) []doctree.Chunk {
	pages := doc.Pages
	if !pagesHaveText(pages) {
		pages = []doctree.Page{{Number: 1, Text: doc.FullText}}
	}

	var f fold
	for _, page := range pages {
		for _, para := range splitByParagraphs(page.Text) {
			stats.ParagraphsProcessed++
			f = r.addParagraph(f, onPage(para, r.count(para), page.Number))
		}
	}
	f = f.flush()
	stats.SplitCount += f.splits

	out := make([]doctree.Chunk, 0, len(f.out))
	for _, p := range f.out {
		out = append(out, newChunk(p.text, p.tokens, doctree.ChunkMetadata{
			PageStart: p.pageStart,
			PageEnd:   p.pageEnd,
			Pages:     p.pages,
		}))
	}
	return out
}

func newChunk(text string, tokens int, meta doctree.ChunkMetadata) doctree.Chunk {
	text = strings.TrimSpace(text)
	return doctree.Chunk{
		Text:       text,
		TokenCount: max(tokens, 1),
		Hash:       HashText(text),
		Metadata:   meta,
	}
}

type crumb struct {
	level int
	title string
}

func copyBreadcrumb(crumbs []crumb) []string {
	if len(crumbs) == 0 {
		return nil
	}
	out := make([]string, len(crumbs))
	for i, c := range crumbs {
		out[i] = c.title
	}
	return out
}

func cloneMeta(m doctree.ChunkMetadata) doctree.ChunkMetadata {
	m.Pages = append([]int(nil), m.Pages...)
	m.HeadingContext = append([]string(nil), m.HeadingContext...)
	return m
}
