package chunker

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// ValidateChunk checks that a chunk is safe to persist.
func ValidateChunk(c *doctree.Chunk) error {
	if c == nil {
		return fmt.Errorf("nil chunk")
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("chunk %d: empty text", c.Sequence)
	}
	if c.TokenCount < 1 {
		return fmt.Errorf("chunk %d: token count %d", c.Sequence, c.TokenCount)
	}
	if c.Sequence < 0 {
		return fmt.Errorf("chunk %d: negative sequence", c.Sequence)
	}
	if c.Hash != HashText(c.Text) {
		return fmt.Errorf("chunk %d: hash does not match text", c.Sequence)
	}
	m := c.Metadata
	if m.PageStart > 0 && m.PageEnd > 0 && m.PageEnd < m.PageStart {
		return fmt.Errorf("chunk %d: page range %d-%d", c.Sequence, m.PageStart, m.PageEnd)
	}
	return nil
}

// ValidateChunks checks every chunk and that sequences run 0..n-1.
func ValidateChunks(chunks []doctree.Chunk) error {
	for i := range chunks {
		if err := ValidateChunk(&chunks[i]); err != nil {
			return err
		}
		if chunks[i].Sequence != i {
			return fmt.Errorf("chunk %d: sequence out of order, expected %d", chunks[i].Sequence, i)
		}
	}
	return nil
}
