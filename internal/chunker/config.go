package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid chunking config")

// Config bounds chunk sizes in tokens.
type Config struct {
	MinTokens                int  `json:"min_tokens" toml:"min_tokens"`
	MaxTokens                int  `json:"max_tokens" toml:"max_tokens"`
	TargetTokens             int  `json:"target_tokens" toml:"target_tokens"`
	OverlapTokens            int  `json:"overlap_tokens" toml:"overlap_tokens"`
	RespectSectionBoundaries bool `json:"respect_section_boundaries" toml:"respect_section_boundaries"`
}

// DefaultConfig returns the sizes used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		MinTokens:                300,
		MaxTokens:                800,
		TargetTokens:             500,
		OverlapTokens:            50,
		RespectSectionBoundaries: true,
	}
}

// Validate requires 0 < MinTokens <= TargetTokens <= MaxTokens and
// 0 <= OverlapTokens < TargetTokens.
func (c Config) Validate() error {
	switch {
	case c.MinTokens <= 0:
		return fmt.Errorf("%w: min_tokens must be positive, got %d", ErrInvalidConfig, c.MinTokens)
	case c.MinTokens > c.TargetTokens:
		return fmt.Errorf("%w: min_tokens (%d) exceeds target_tokens (%d)", ErrInvalidConfig, c.MinTokens, c.TargetTokens)
	case c.TargetTokens > c.MaxTokens:
		return fmt.Errorf("%w: target_tokens (%d) exceeds max_tokens (%d)", ErrInvalidConfig, c.TargetTokens, c.MaxTokens)
	case c.OverlapTokens < 0:
		return fmt.Errorf("%w: overlap_tokens must not be negative, got %d", ErrInvalidConfig, c.OverlapTokens)
	case c.OverlapTokens >= c.TargetTokens:
		return fmt.Errorf("%w: overlap_tokens (%d) must be below target_tokens (%d)", ErrInvalidConfig, c.OverlapTokens, c.TargetTokens)
	}
	return nil
}

// Overrides replaces individual fields of a Config for one call. Nil fields keep
// the base value.
type Overrides struct {
	MinTokens                *int  `json:"min_tokens,omitempty"`
	MaxTokens                *int  `json:"max_tokens,omitempty"`
	TargetTokens             *int  `json:"target_tokens,omitempty"`
	OverlapTokens            *int  `json:"overlap_tokens,omitempty"`
	RespectSectionBoundaries *bool `json:"respect_section_boundaries,omitempty"`
}

// IsZero reports whether o changes nothing.
func (o *Overrides) IsZero() bool {
	return o == nil || (o.MinTokens == nil && o.MaxTokens == nil && o.TargetTokens == nil &&
		o.OverlapTokens == nil && o.RespectSectionBoundaries == nil)
}

// Apply returns c with the non-nil fields of o replaced. The result is not validated.
func (c Config) Apply(o *Overrides) Config {
	if o == nil {
		return c
	}
	if o.MinTokens != nil {
		c.MinTokens = *o.MinTokens
	}
	if o.MaxTokens != nil {
		c.MaxTokens = *o.MaxTokens
	}
	if o.TargetTokens != nil {
		c.TargetTokens = *o.TargetTokens
	}
	if o.OverlapTokens != nil {
		c.OverlapTokens = *o.OverlapTokens
	}
	if o.RespectSectionBoundaries != nil {
		c.RespectSectionBoundaries = *o.RespectSectionBoundaries
	}
	return c
}
