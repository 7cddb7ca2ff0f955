package pipeline

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dgallion1/docchunk/internal/chunker"
)

// ResultCache keeps recent successful outcomes keyed by content hash and the
// effective chunking config. A nil *ResultCache is a valid, always-empty cache.
type ResultCache struct {
	lru *lru.Cache[string, *Outcome]
}

// NewResultCache returns a cache holding up to size outcomes. A non-positive
// size disables caching and returns nil.
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, *Outcome](size)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &ResultCache{lru: c}, nil
}

func cacheKey(contentHash, filename string, cfg chunker.Config) string {
	return fmt.Sprintf("%s|%s|%d|%d|%d|%d|%t", contentHash, filename,
		cfg.MinTokens, cfg.MaxTokens, cfg.TargetTokens, cfg.OverlapTokens, cfg.RespectSectionBoundaries)
}

func (c *ResultCache) get(key string) (*Outcome, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *ResultCache) add(key string, o *Outcome) {
	if c == nil {
		return
	}
	c.lru.Add(key, o)
}

// Len returns the number of cached outcomes.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge drops every cached outcome.
func (c *ResultCache) Purge() {
	if c != nil {
		c.lru.Purge()
	}
}
