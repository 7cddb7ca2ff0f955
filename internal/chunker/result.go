package chunker

import (
	"fmt"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// ErrorCode classifies a failed Chunk call.
type ErrorCode string

const (
	ErrCodeEmptyDocument ErrorCode = "EMPTY_DOCUMENT"
	ErrCodeNoTextContent ErrorCode = "NO_TEXT_CONTENT"
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeTokenization  ErrorCode = "TOKENIZATION_ERROR"
	ErrCodeUnknown       ErrorCode = "UNKNOWN_ERROR"
)

// Error describes why chunking failed.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Stats aggregates one Chunk call.
type Stats struct {
	TotalChunks         int `json:"total_chunks"`
	AverageTokens       int `json:"average_tokens"`
	MinTokens           int `json:"min_tokens"`
	MaxTokens           int `json:"max_tokens"`
	TotalTokens         int `json:"total_tokens"`
	ParagraphsProcessed int `json:"paragraphs_processed"`
	SectionsProcessed   int `json:"sections_processed"`
	MergeCount          int `json:"merge_count"`
	SplitCount          int `json:"split_count"`
}

// tally fills the size counters from the final chunks.
func (s *Stats) tally(chunks []doctree.Chunk) {
	s.TotalChunks = len(chunks)
	s.TotalTokens, s.MinTokens, s.MaxTokens = 0, 0, 0
	for i, c := range chunks {
		s.TotalTokens += c.TokenCount
		if i == 0 || c.TokenCount < s.MinTokens {
			s.MinTokens = c.TokenCount
		}
		s.MaxTokens = max(s.MaxTokens, c.TokenCount)
	}
	s.AverageTokens = 0
	if n := len(chunks); n > 0 {
		s.AverageTokens = (s.TotalTokens + n/2) / n
	}
}

// Result is the outcome of a Chunk call. Exactly one of Chunks or Error is meaningful.
type Result struct {
	Success bool            `json:"success"`
	Chunks  []doctree.Chunk `json:"chunks"`
	Stats   Stats           `json:"stats"`
	Config  Config          `json:"config"`
	Error   *Error          `json:"error,omitempty"`
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Success || r.Error == nil {
		return nil
	}
	return r.Error
}

func failure(cfg Config, code ErrorCode, msg, details string) Result {
	return Result{
		Chunks: []doctree.Chunk{},
		Config: cfg,
		Error:  &Error{Code: code, Message: msg, Details: details},
	}
}
