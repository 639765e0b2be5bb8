package external

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of memoized entries kept per
// cached collaborator.
const DefaultCacheSize = 1000

// CachedKeywordExtractor memoizes KeywordExtractor.Extract by (text, topN),
// avoiding redundant calls when the same variant text recurs across bugs
// (e.g. identical stack traces).
type CachedKeywordExtractor struct {
	inner KeywordExtractor
	cache *lru.Cache[string, []string]
}

func NewCachedKeywordExtractor(inner KeywordExtractor, cacheSize int) *CachedKeywordExtractor {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []string](cacheSize)
	return &CachedKeywordExtractor{inner: inner, cache: cache}
}

func (c *CachedKeywordExtractor) Extract(ctx context.Context, text string, topN int) ([]string, error) {
	key := hashKey(text, strconv.Itoa(topN))
	if kws, ok := c.cache.Get(key); ok {
		return kws, nil
	}

	kws, err := c.inner.Extract(ctx, text, topN)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, kws)
	return kws, nil
}

// CachedReasoner memoizes Reasoner.Reason by raw text. The reasoner is the
// most expensive and least deterministic collaborator, so memoization also
// gives repeated test runs a stable answer for a given input.
type CachedReasoner struct {
	inner Reasoner
	cache *lru.Cache[string, string]
}

func NewCachedReasoner(inner Reasoner, cacheSize int) *CachedReasoner {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, string](cacheSize)
	return &CachedReasoner{inner: inner, cache: cache}
}

func (c *CachedReasoner) Reason(ctx context.Context, rawText string) (string, error) {
	key := hashKey(rawText)
	if rewritten, ok := c.cache.Get(key); ok {
		return rewritten, nil
	}

	rewritten, err := c.inner.Reason(ctx, rawText)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, rewritten)
	return rewritten, nil
}

func hashKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
