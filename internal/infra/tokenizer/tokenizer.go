package tokenizer

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

type encoder interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
}

// Counter estimates token counts with a BPE encoding. When the encoding
// cannot be loaded it falls back to a words based estimate.
type Counter struct {
	load   func() (encoder, error)
	logger *slog.Logger

	once sync.Once
	enc  encoder
}

// NewCounter returns a Counter for the named encoding (cl100k_base when empty).
// The encoding is loaded on first use.
func NewCounter(encoding string, logger *slog.Logger) *Counter {
	if strings.TrimSpace(encoding) == "" {
		encoding = defaultEncoding
	}
	return newCounter(func() (encoder, error) {
		return tiktoken.GetEncoding(encoding)
	}, logger)
}

func newCounter(load func() (encoder, error), logger *slog.Logger) *Counter {
	return &Counter{load: load, logger: logger.With("component", "tokenizer.counter")}
}

// Count implements digest.TokenCounter.
func (c *Counter) Count(text string) int {
	c.once.Do(func() {
		enc, err := c.load()
		if err != nil {
			c.logger.Warn("token encoding unavailable, using estimate", "error", err)
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Estimate approximates tokens as four thirds of the word count.
func Estimate(text string) int {
	words := len(strings.Fields(text))
	return (words*4 + 2) / 3
}
