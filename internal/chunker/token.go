package chunker

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// ErrTokenization is wrapped when a strict tokenizer fails.
var ErrTokenization = errors.New("tokenization failed")

// Tokenizer counts the tokens in text.
type Tokenizer func(text string) (int, error)

// EstimateTokens gives a rough token count from the word count.
func EstimateTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	words := len(strings.Fields(text))
	// Roughly 0.75 words per token for English text.
	tokens := int(float64(words) * 1.33)
	return max(tokens, 1)
}

// ApproximateTokens is the fallback count: one token per four characters, rounded up.
func ApproximateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

func estimateTokenizer(text string) (int, error) {
	return EstimateTokens(text), nil
}

// tokenizationFailure carries a strict tokenizer error up to Chunk.
type tokenizationFailure struct {
	err error
}

type counter struct {
	tokenize Tokenizer
	strict   bool
	log      *slog.Logger
}

// count never fails in lenient mode. In strict mode a tokenizer failure panics
// with tokenizationFailure, which Chunk turns into a TOKENIZATION_ERROR result.
func (c counter) count(text string) int {
	n, err := c.call(text)
	if err == nil && n < 0 {
		err = fmt.Errorf("negative token count %d", n)
	}
	if err == nil {
		return n
	}
	if c.strict {
		panic(tokenizationFailure{err: fmt.Errorf("%w: %v", ErrTokenization, err)})
	}
	c.log.Debug("tokenizer failed, approximating", "error", err, "chars", len(text))
	return ApproximateTokens(text)
}

func (c counter) call(text string) (n int, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("tokenizer panic: %v", v)
		}
	}()
	return c.tokenize(text)
}
