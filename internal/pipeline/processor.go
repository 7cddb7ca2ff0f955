package pipeline

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/config"
	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/parser"
	"github.com/dgallion1/docchunk/internal/structure"
)

// Outcome is the full result of processing one file. Outcomes may be shared
// through the ResultCache and must be treated as read-only.
type Outcome struct {
	Filename    string                  `json:"filename"`
	ContentHash string                  `json:"content_hash"`
	Document    *doctree.ParsedDocument `json:"document"`
	Outline     []*doctree.DocNode      `json:"outline"`
	Result      chunker.Result          `json:"result"`
	Cached      bool                    `json:"cached"`
}

// Processor runs the parse, structure and chunk stages for a single file.
type Processor struct {
	chunker  *chunker.Chunker
	analyzer *structure.Analyzer
	opts     parser.Options
	stats    *LatencyStats
	cache    *ResultCache
	log      *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithParserOptions sets the options passed to every parser.
func WithParserOptions(opts parser.Options) ProcessorOption {
	return func(p *Processor) { p.opts = opts }
}

// WithAnalyzer replaces the default structure analyzer.
func WithAnalyzer(a *structure.Analyzer) ProcessorOption {
	return func(p *Processor) {
		if a != nil {
			p.analyzer = a
		}
	}
}

// WithResultCache enables outcome caching in Process.
func WithResultCache(c *ResultCache) ProcessorOption {
	return func(p *Processor) { p.cache = c }
}

// WithStats records chunking latency into s.
func WithStats(s *LatencyStats) ProcessorOption {
	return func(p *Processor) {
		if s != nil {
			p.stats = s
		}
	}
}

// WithProcessorLogger sets the logger.
func WithProcessorLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

func NewProcessor(ck *chunker.Chunker, opts ...ProcessorOption) *Processor {
	p := &Processor{
		chunker:  ck,
		analyzer: structure.NewAnalyzer(nil),
		stats:    NewLatencyStats(time.Hour),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewProcessorFromConfig builds the chunker, heading detector, parser options and
// result cache described by cfg. Options in extra are applied last.
func NewProcessorFromConfig(cfg config.Config, log *slog.Logger, extra ...ProcessorOption) (*Processor, error) {
	if log == nil {
		log = slog.Default()
	}
	ck, err := chunker.New(cfg.Chunking, chunker.WithLogger(log))
	if err != nil {
		return nil, err
	}
	cache, err := NewResultCache(cfg.ResultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}

	detector := structure.NewDetector(nil)
	if cfg.HeadingMinLength > 0 {
		detector.MinLength = cfg.HeadingMinLength
	}
	if cfg.HeadingMaxLength > 0 {
		detector.MaxLength = cfg.HeadingMaxLength
	}

	opts := []ProcessorOption{
		WithParserOptions(parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext}),
		WithAnalyzer(structure.NewAnalyzer(detector)),
		WithResultCache(cache),
		WithProcessorLogger(log),
	}
	return NewProcessor(ck, append(opts, extra...)...), nil
}

// Stats returns the latency tracker.
func (p *Processor) Stats() *LatencyStats { return p.stats }

// Chunker returns the underlying chunker.
func (p *Processor) Chunker() *chunker.Chunker { return p.chunker }

// Parse picks a parser by extension and parses data.
func (p *Processor) Parse(data []byte, filename string) (*doctree.ParsedDocument, error) {
	ps, err := parser.ForFile(filename, p.opts)
	if err != nil {
		return nil, err
	}
	doc, err := ps.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return doc, nil
}

// Structure fills in pages, headings and sections.
func (p *Processor) Structure(doc *doctree.ParsedDocument) {
	p.analyzer.Analyze(doc)
}

// Chunk runs the chunker and records its latency.
func (p *Processor) Chunk(doc *doctree.ParsedDocument, overrides *chunker.Overrides) chunker.Result {
	start := time.Now()
	res := p.chunker.Chunk(doc, overrides)
	p.stats.Record(time.Since(start), len(res.Chunks), !res.Success)
	if !res.Success {
		p.log.Debug("chunking failed", "code", res.Error.Code, "message", res.Error.Message)
	}
	return res
}

// Process runs every stage on data. Parse failures are returned as errors;
// chunking failures are reported in Outcome.Result. Successful outcomes are
// cached when a ResultCache is configured.
func (p *Processor) Process(data []byte, filename string, overrides *chunker.Overrides) (*Outcome, error) {
	hash := ContentHashHex(data)
	key := cacheKey(hash, filename, p.chunker.Config().Apply(overrides))
	if o, ok := p.cache.get(key); ok {
		hit := *o
		hit.Cached = true
		return &hit, nil
	}

	doc, err := p.Parse(data, filename)
	if err != nil {
		return nil, err
	}
	p.Structure(doc)

	o := &Outcome{
		Filename:    filename,
		ContentHash: hash,
		Document:    doc,
		Outline:     structure.BuildOutline(doc.Sections),
		Result:      p.Chunk(doc, overrides),
	}
	if o.Result.Success {
		p.cache.add(key, o)
	}
	return o, nil
}

// CachedOutcomes returns the number of outcomes held by the result cache.
func (p *Processor) CachedOutcomes() int { return p.cache.Len() }
