// Package tokenizer provides token counting for chunk budgeting.
package tokenizer

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName is the BPE encoding used by the embedding models this
// system targets.
const encodingName = "cl100k_base"

// Counter implements outbound.TokenCounter. It counts with the cl100k_base
// encoding when available and falls back to a whitespace word count when
// the encoding could not be loaded.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter creates a token counter. Encoding load failures are not fatal;
// the counter degrades to word counting.
func NewCounter() *Counter {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return &Counter{}
	}
	return &Counter{encoding: encoding}
}

// CountTokens returns the token count of text.
func (c *Counter) CountTokens(text string) int {
	if c.encoding == nil {
		return len(strings.Fields(text))
	}
	return len(c.encoding.Encode(text, nil, nil))
}
