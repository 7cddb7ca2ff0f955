package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// HashText returns the hex SHA-256 of the trimmed text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// Renumber sets Sequence to each chunk's index.
func Renumber(chunks []doctree.Chunk) []doctree.Chunk {
	for i := range chunks {
		chunks[i].Sequence = i
	}
	return chunks
}

// mergeSmall makes one left-to-right pass joining under-min chunks with their
// successor while the result fits MaxTokens. Chunks already above MaxTokens are
// passed through as they are.
func mergeSmall(chunks []doctree.Chunk, cfg Config, count func(string) int) ([]doctree.Chunk, int) {
	if len(chunks) == 0 {
		return nil, 0
	}
	out := make([]doctree.Chunk, 0, len(chunks))
	merges := 0
	cur := chunks[0]
	for _, next := range chunks[1:] {
		if cur.TokenCount < cfg.MinTokens {
			joined := cur.Text + paragraphSep + next.Text
			if n := count(joined); n <= cfg.MaxTokens {
				cur = mergePair(cur, next, joined, n)
				merges++
				continue
			}
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur), merges
}

// mergePair keeps a's labels and widens its page range to cover b.
func mergePair(a, b doctree.Chunk, text string, tokens int) doctree.Chunk {
	meta := a.Metadata
	meta.PageStart = minPage(a.Metadata.PageStart, b.Metadata.PageStart)
	meta.PageEnd = max(a.Metadata.PageEnd, b.Metadata.PageEnd)
	if len(a.Metadata.Pages) > 0 || len(b.Metadata.Pages) > 0 {
		meta.Pages = unionPages(a.Metadata.Pages, b.Metadata.Pages)
	}
	return doctree.Chunk{
		Text:       text,
		TokenCount: max(tokens, 1),
		Hash:       HashText(text),
		Metadata:   meta,
	}
}
