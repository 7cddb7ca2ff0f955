package chunker

import (
	"math"
	"regexp"
	"slices"
	"strings"
)

const (
	paragraphSep = "\n\n"
	sentenceSep  = " "
)

var (
	blankLine   = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)
	sentenceEnd = regexp.MustCompile(`[.!?]+["'”’)\]]*\s+`)
)

// piece is a chunk under construction: text, its token count and the pages it
// came from. A zero piece is empty.
type piece struct {
	text      string
	tokens    int
	pageStart int
	pageEnd   int
	pages     []int
}

func onPage(text string, tokens, page int) piece {
	p := piece{text: text, tokens: tokens}
	if page > 0 {
		p.pageStart, p.pageEnd, p.pages = page, page, []int{page}
	}
	return p
}

func (p piece) empty() bool { return p.text == "" }

// join returns a new piece holding p then q. Neither input is modified.
func (p piece) join(q piece, sep string, tokens int) piece {
	return piece{
		text:      p.text + sep + q.text,
		tokens:    tokens,
		pageStart: minPage(p.pageStart, q.pageStart),
		pageEnd:   max(p.pageEnd, q.pageEnd),
		pages:     unionPages(p.pages, q.pages),
	}
}

// withPages copies the page range of src onto p.
func (p piece) withPages(src piece) piece {
	p.pageStart, p.pageEnd, p.pages = src.pageStart, src.pageEnd, slices.Clone(src.pages)
	return p
}

func minPage(a, b int) int {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	}
	return min(a, b)
}

func unionPages(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// fold is the accumulator threaded through each splitting level. Every step takes
// a fold by value and returns the next one.
type fold struct {
	cur    piece
	out    []piece
	splits int
}

func (f fold) emit(p piece) fold {
	if p.empty() {
		return f
	}
	f.out = append(slices.Clip(f.out), p)
	return f
}

// flush emits cur and clears it.
func (f fold) flush() fold {
	f = f.emit(f.cur)
	f.cur = piece{}
	return f
}

// reducer holds the rules shared by every level.
type reducer struct {
	cfg   Config
	count func(string) int
}

// addParagraph folds one paragraph into f.
func (r reducer) addParagraph(f fold, para piece) fold {
	if para.tokens > r.cfg.MaxTokens {
		frags := r.splitParagraph(para)
		f.splits++
		if !f.cur.empty() && f.cur.tokens < r.cfg.MinTokens && len(frags) > 0 {
			if n := r.count(f.cur.text + paragraphSep + frags[0].text); n <= r.cfg.MaxTokens {
				frags[0] = f.cur.join(frags[0], paragraphSep, n)
				f.cur = piece{}
			}
		}
		f = f.flush()
		for _, frag := range frags {
			f = f.emit(frag)
		}
		return f
	}

	if f.cur.empty() {
		f.cur = para
		return f
	}
	combined := r.count(f.cur.text + paragraphSep + para.text)
	switch {
	case combined <= r.cfg.MaxTokens:
		f.cur = f.cur.join(para, paragraphSep, combined)
	case f.cur.tokens >= r.cfg.MinTokens:
		f = f.flush()
		f.cur = para
	default:
		// Forced append: cur stays under MinTokens otherwise, so MaxTokens gives way.
		f.cur = f.cur.join(para, paragraphSep, combined)
	}
	return f
}

// splitParagraph breaks an over-long paragraph into sentence-aligned fragments.
// Every fragment keeps the paragraph's page range.
func (r reducer) splitParagraph(para piece) []piece {
	var f fold
	for _, s := range splitSentences(para.text) {
		f = r.addSentence(f, s)
	}
	f = f.flush()

	frags := make([]piece, len(f.out))
	for i, p := range f.out {
		frags[i] = p.withPages(para)
	}
	return frags
}

// addSentence folds one sentence into f, checking against MaxTokens only.
func (r reducer) addSentence(f fold, sentence string) fold {
	tokens := r.count(sentence)
	if tokens > r.cfg.MaxTokens {
		if !f.cur.empty() {
			if f.cur.tokens >= r.cfg.MinTokens {
				f = f.flush()
			} else {
				sentence = f.cur.text + sentenceSep + sentence
				f.cur = piece{}
			}
		}
		for _, w := range r.splitWords(sentence) {
			f = f.emit(piece{text: w, tokens: r.count(w)})
		}
		return f
	}

	if f.cur.empty() {
		f.cur = piece{text: sentence, tokens: tokens}
		return f
	}
	joined := f.cur.text + sentenceSep + sentence
	if n := r.count(joined); n <= r.cfg.MaxTokens {
		f.cur = piece{text: joined, tokens: n}
		return f
	}
	f = f.flush()
	f.cur = piece{text: sentence, tokens: tokens}
	return f
}

// splitWords slides a window over the words of text, emitting a fragment whenever
// the next word would push it past TargetTokens. Each new window starts with an
// overlap tail of the previous fragment.
func (r reducer) splitWords(text string) []string {
	words := strings.Fields(text)
	var (
		out []string
		buf []string
	)
	for _, w := range words {
		if len(buf) > 0 && r.count(strings.Join(buf, " ")+" "+w) > r.cfg.TargetTokens {
			out = append(out, strings.Join(buf, " "))
			keep := r.overlapWords(len(buf))
			buf = slices.Clone(buf[len(buf)-keep:])
		}
		buf = append(buf, w)
	}
	if len(buf) > 0 {
		out = append(out, strings.Join(buf, " "))
	}
	return out
}

// overlapWords is round(overlap/target * n), always fewer than n.
func (r reducer) overlapWords(n int) int {
	if r.cfg.OverlapTokens <= 0 || r.cfg.TargetTokens <= 0 {
		return 0
	}
	keep := int(math.Round(float64(r.cfg.OverlapTokens) / float64(r.cfg.TargetTokens) * float64(n)))
	return max(0, min(keep, n-1))
}

// splitByParagraphs splits text on blank lines, dropping empty paragraphs.
func splitByParagraphs(text string) []string {
	var out []string
	for _, p := range blankLine.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences splits after terminal punctuation followed by whitespace. Text
// without a boundary is one sentence.
func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}
