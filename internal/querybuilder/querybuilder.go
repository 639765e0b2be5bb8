// Package querybuilder turns a raw bug report into the up-to-six retrieval
// query variants named in the data model: basic, keybert, and reason, each
// in a baseline and extended flavor. Every variant shares the same
// Normalizer (internal/normalize) so bug-report and source-code vocabulary
// stay aligned.
package querybuilder

import (
	"context"
	"strings"

	"github.com/aman-cerp/buglocate/internal/external"
	"github.com/aman-cerp/buglocate/internal/normalize"
)

// BugReport is the raw input to query building: a title/description pair
// plus optional OCR-extracted image text that only the extended variants
// see.
type BugReport struct {
	ID          string
	Title       string
	Description string
	OCRContent  []string // concatenated into extended_text
}

// RawText returns the baseline text: "title\ndescription".
func (b *BugReport) RawText() string {
	return b.Title + "\n" + b.Description
}

// ExtendedText returns the baseline text plus concatenated OCR content.
func (b *BugReport) ExtendedText() string {
	parts := append([]string{b.Title, b.Description}, b.OCRContent...)
	return strings.Join(parts, "\n")
}

// Variant names, matching the data model exactly.
const (
	BasicBaseline    = "basic-baseline"
	BasicExtended    = "basic-extended"
	KeybertBaseline  = "keybert-baseline"
	KeybertExtended  = "keybert-extended"
	ReasonBaseline   = "reason-baseline"
	ReasonExtended   = "reason-extended"
	DefaultTopKeywords = 10
)

// AllVariantNames lists every variant in a stable order.
var AllVariantNames = []string{
	BasicBaseline, BasicExtended,
	KeybertBaseline, KeybertExtended,
	ReasonBaseline, ReasonExtended,
}

// Query is one produced variant: a name and its normalized token list.
// An empty Tokens slice is a valid, non-error result (the empty-variant
// contract) — Localize on it yields an empty RankedResult. Text is the
// single-space join of Tokens, kept alongside so a dense index can embed
// the same variant it scores with BM25 without re-joining at the call site.
type Query struct {
	Variant string
	Tokens  []string
	Text    string
}

// Builder produces query variants using the configured external
// collaborators. KeywordExtractor and Reasoner may be nil, in which case
// their variants are emitted empty rather than erroring — so a caller who
// only wired an embedder still gets basic-baseline/basic-extended.
type Builder struct {
	Stop             normalize.StopWords
	KeywordExtractor external.KeywordExtractor
	Reasoner         external.Reasoner
	TopNKeywords     int
}

// NewBuilder constructs a Builder with the given stopword set and
// collaborators. topNKeywords <= 0 uses DefaultTopKeywords.
func NewBuilder(stop normalize.StopWords, kw external.KeywordExtractor, reasoner external.Reasoner, topNKeywords int) *Builder {
	if topNKeywords <= 0 {
		topNKeywords = DefaultTopKeywords
	}
	return &Builder{Stop: stop, KeywordExtractor: kw, Reasoner: reasoner, TopNKeywords: topNKeywords}
}

// Build produces all six variants for the given bug report, one family at a
// time. Per-variant collaborator failures do not fail the whole build: a
// failing variant is emitted empty (the caller's pipeline stage is
// responsible for logging the underlying error if it wants to). Callers
// that want the three variant families computed concurrently (the system
// design's "one QUERY-GEN worker per variant family") should call
// BasicVariants/KeybertVariants/ReasonVariants directly instead, as
// internal/pipeline does.
func (b *Builder) Build(ctx context.Context, report *BugReport) []Query {
	rawText := report.RawText()
	extendedText := report.ExtendedText()

	queries := make([]Query, 0, 6)
	queries = append(queries, b.BasicVariants(rawText, extendedText)...)
	queries = append(queries, b.KeybertVariants(ctx, rawText, extendedText)...)
	queries = append(queries, b.ReasonVariants(ctx, rawText, extendedText)...)
	return queries
}

// BasicVariants produces the basic-baseline/basic-extended pair: the raw
// text run straight through the Normalizer, no external collaborator.
func (b *Builder) BasicVariants(rawText, extendedText string) []Query {
	return []Query{
		newQuery(BasicBaseline, normalize.Tokens(rawText, b.Stop)),
		newQuery(BasicExtended, normalize.Tokens(extendedText, b.Stop)),
	}
}

// KeybertVariants produces the keybert-baseline/keybert-extended pair via
// the Keyword Extractor.
func (b *Builder) KeybertVariants(ctx context.Context, rawText, extendedText string) []Query {
	return []Query{
		newQuery(KeybertBaseline, b.keybertVariant(ctx, rawText)),
		newQuery(KeybertExtended, b.keybertVariant(ctx, extendedText)),
	}
}

// ReasonVariants produces the reason-baseline/reason-extended pair via the
// Reasoner.
func (b *Builder) ReasonVariants(ctx context.Context, rawText, extendedText string) []Query {
	return []Query{
		newQuery(ReasonBaseline, b.reasonVariant(ctx, rawText)),
		newQuery(ReasonExtended, b.reasonVariant(ctx, extendedText)),
	}
}

func newQuery(variant string, tokens []string) Query {
	return Query{Variant: variant, Tokens: tokens, Text: strings.Join(tokens, " ")}
}

// keybertVariant feeds already-normalized text to the Keyword Extractor and
// joins the result with single spaces before re-tokenizing — the join step
// exists so downstream consumers always see a Query as a token list, never
// a raw keyword slice.
func (b *Builder) keybertVariant(ctx context.Context, text string) []string {
	if b.KeywordExtractor == nil {
		return nil
	}
	normalized := normalize.Normalize(text, b.Stop)
	if normalized == "" {
		return nil
	}
	keywords, err := b.KeywordExtractor.Extract(ctx, normalized, b.TopNKeywords)
	if err != nil || len(keywords) == 0 {
		return nil
	}
	return strings.Fields(strings.Join(keywords, " "))
}

// reasonVariant feeds raw (un-normalized) text to the Reasoner, then
// applies the Normalizer to the rewritten text.
func (b *Builder) reasonVariant(ctx context.Context, rawText string) []string {
	if b.Reasoner == nil {
		return nil
	}
	rewritten, err := b.Reasoner.Reason(ctx, rawText)
	if err != nil || rewritten == "" {
		return nil
	}
	return normalize.Tokens(rewritten, b.Stop)
}
