package normalize

import (
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

// TokenizerName and StopFilterName are the bleve registry names used by the
// optional `index --backend=bleve` inspection path (SPEC_FULL.md §11). They
// are not on the scored BM25/Dense code path. The tokenizer applies
// TokenizeCode (identifier splitting, lowercasing, tokens of 2+ characters)
// rather than the full Normalize rule set.
const (
	TokenizerName = "buglocate_tokenizer"
	StopFilterName = "buglocate_stop"
)

func init() {
	_ = registry.RegisterTokenizer(TokenizerName, tokenizerConstructor)
	_ = registry.RegisterTokenFilter(StopFilterName, stopFilterConstructor)
}

func tokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveTokenizer{}, nil
}

// bleveTokenizer adapts TokenizeCode to analysis.Tokenizer.
type bleveTokenizer struct{}

func (t *bleveTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}

	return result
}

// activeStopWords is the stopword set captured by stopFilterConstructor each
// time bleve builds the stop filter.
var activeStopWords = map[string]struct{}{}

// SetBleveStopWords configures the stopword set the bleve analyzer path
// uses. Must be called before opening a bleve index.
func SetBleveStopWords(stop StopWords) {
	activeStopWords = stop
}

func stopFilterConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
	return &bleveStopFilter{stopWords: activeStopWords}, nil
}

// bleveStopFilter is an analysis.TokenFilter that drops tokens found in its
// stopword set.
type bleveStopFilter struct {
	stopWords map[string]struct{}
}

func (f *bleveStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
