package external

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/aman-cerp/buglocate/internal/normalize"
)

// StaticDimensions is the embedding dimension produced by StaticEmbedder.
const StaticDimensions = 256

// Weights for combining token and n-gram hash buckets.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// StaticEmbedder is a deterministic, network-free Embedder used in tests
// and as a fallback when no real embedding model is configured. It hashes
// tokens and character n-grams into fixed buckets, so identical input
// always yields an identical vector for a given ModelID.
type StaticEmbedder struct{}

func NewStaticEmbedder() *StaticEmbedder { return &StaticEmbedder{} }

func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, StaticDimensions)

	tokens := normalize.Tokens(text, nil)
	for _, tok := range tokens {
		idx := hashToIndex(tok, StaticDimensions)
		vector[idx] += tokenWeight
	}

	flat := normalizeForNgrams(text)
	for _, ng := range extractNgrams(flat, ngramSize) {
		idx := hashToIndex(ng, StaticDimensions)
		vector[idx] += ngramWeight
	}

	return vector, nil
}

func (e *StaticEmbedder) Dimensions() int { return StaticDimensions }
func (e *StaticEmbedder) ModelID() string { return "static-v1" }

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

func normalizeForNgrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return nil
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

// StaticKeywordExtractor returns the topN most frequent normalized tokens,
// ties broken by first occurrence — deterministic, no external model.
type StaticKeywordExtractor struct{}

func NewStaticKeywordExtractor() *StaticKeywordExtractor { return &StaticKeywordExtractor{} }

func (e *StaticKeywordExtractor) Extract(_ context.Context, text string, topN int) ([]string, error) {
	tokens := normalize.Tokens(text, nil)
	if len(tokens) == 0 || topN <= 0 {
		return nil, nil
	}

	counts := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	// stable sort by count desc, first-occurrence asc
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && counts[order[j]] > counts[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	if topN > len(order) {
		topN = len(order)
	}
	return order[:topN], nil
}

// IdentityReasoner returns the raw text unchanged — a best-effort no-op
// used when no real reasoning model is configured.
type IdentityReasoner struct{}

func NewIdentityReasoner() *IdentityReasoner { return &IdentityReasoner{} }

func (r *IdentityReasoner) Reason(_ context.Context, rawText string) (string, error) {
	return rawText, nil
}
