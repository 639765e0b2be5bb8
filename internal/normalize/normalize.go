// Package normalize produces a deterministic bag-of-tokens from arbitrary
// text. It is applied verbatim to both bug reports and source files so that
// the two vocabularies line up.
package normalize

import (
	"regexp"
	"strings"
)

var (
	markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\(https?://\S+?\)`)
	urlRe           = regexp.MustCompile(`https?://\S+|www\.\S+`)
	lowerUpperRe    = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	acronymRe       = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	junkRunRe       = regexp.MustCompile(`[\s]+|[^\w\s]|[\d]+`)
)

// MinTokenLength is the minimum surviving token length (rule 7).
const MinTokenLength = 3

// StopWords is an immutable lookup set built by BuildStopWords.
type StopWords map[string]struct{}

// Normalize applies the seven normalization rules, in order, and returns the
// whitespace-joined string of surviving tokens. Idempotent: Normalize(s) run
// twice through Normalize yields the same result (T1), because every rule is
// a no-op on text that already satisfies it.
func Normalize(text string, stop StopWords) string {
	text = markdownImageRe.ReplaceAllString(text, "")
	text = urlRe.ReplaceAllString(text, "")

	text = lowerUpperRe.ReplaceAllString(text, "$1 $2")
	text = acronymRe.ReplaceAllString(text, "$1 $2")
	text = strings.ReplaceAll(text, "_", " ")

	words := strings.Fields(strings.ToLower(text))
	words = filterStop(words, stop)

	joined := strings.Join(words, " ")
	joined = junkRunRe.ReplaceAllString(joined, " ")
	words = strings.Fields(joined)

	words = filterStop(words, stop)

	words = dropShort(words)

	return strings.Join(words, " ")
}

// Tokens is Normalize split on single spaces, the token-list form consumed
// by BM25 scoring and dense-query embedding (spec's "tokenize through the
// same Normalizer before scoring" resolution of its Open Question).
func Tokens(text string, stop StopWords) []string {
	normalized := Normalize(text, stop)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

func filterStop(words []string, stop StopWords) []string {
	if len(stop) == 0 {
		return words
	}
	out := words[:0:0]
	for _, w := range words {
		if _, isStop := stop[w]; !isStop {
			out = append(out, w)
		}
	}
	return out
}

func dropShort(words []string) []string {
	out := words[:0:0]
	for _, w := range words {
		if len([]rune(w)) >= MinTokenLength {
			out = append(out, w)
		}
	}
	return out
}

// BuildStopWords lowercases a raw stopword list into a lookup set.
func BuildStopWords(words []string) StopWords {
	m := make(StopWords, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			m[w] = struct{}{}
		}
	}
	return m
}

// LoadStopWords builds the stopword set from the lines of a stopwords file
// (one stopword per line), mirroring original_source's load_stopwords.
func LoadStopWords(lines []string) StopWords {
	return BuildStopWords(lines)
}
