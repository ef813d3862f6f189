// Package tokenizer counts tokens for prompt/completion accounting,
// shared by every completion call and the façade's usage block.
package tokenizer

import (
	"go.uber.org/zap"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter counts the tokens a string encodes to.
type Counter interface {
	Count(text string) int
}

// bpeCounter wraps a cached cl100k_base encoding, the encoding the
// gpt-3.5-turbo/gpt-4 family uses.
type bpeCounter struct {
	enc *tiktoken.Tiktoken
}

// heuristicCounter is the fallback used only if the BPE encoding fails
// to load: token accounting is diagnostic, not correctness-critical,
// so a failure here must never be fatal.
type heuristicCounter struct{}

func (heuristicCounter) Count(text string) int {
	return len([]rune(text))/4 + 1
}

// New builds the shared token counter, logging a warning and falling
// back to the heuristic counter if the encoding can't be loaded.
func New(logger *zap.Logger) Counter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("failed to load cl100k_base encoding; falling back to heuristic token counting", zap.Error(err))
		return heuristicCounter{}
	}
	return &bpeCounter{enc: enc}
}

func (c *bpeCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
