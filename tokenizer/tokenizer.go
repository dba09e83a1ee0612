// Package tokenizer budgets prompt space. Evidence blocks fed to the writer
// and the judge are trimmed to a token budget so a verbose search result
// cannot crowd out the instructions.
package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts and trims text against a BPE encoding.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter resolves an encoding by model name, falling back to treating
// name as an encoding name. Note the encoding data is fetched on first use,
// so construction can fail offline; callers should fall back to Approx.
func NewCounter(name string) (*Counter, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, fmt.Errorf("no encoding for %s: %w", name, err)
		}
	}
	return &Counter{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Truncate cuts text down to at most budget tokens, decoding the kept prefix
// back to a string. Text within budget comes back unchanged.
func (c *Counter) Truncate(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	ids := c.enc.Encode(text, nil, nil)
	if len(ids) <= budget {
		return text
	}
	return c.enc.Decode(ids[:budget])
}

// Approx estimates tokens as one per four characters, the usual rule of
// thumb for English text. Used when no Counter could be built.
func Approx(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// ApproxTruncate cuts text to roughly budget tokens using the same estimate.
func ApproxTruncate(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	runes := []rune(text)
	max := budget * 4
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
