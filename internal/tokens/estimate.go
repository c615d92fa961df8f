package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens for a fallback usage figure when a provider
// response omits Usage. Falls back to a conservative chars/4 heuristic if the
// tiktoken-go encoding cannot be loaded (e.g. offline environments
// without its bundled vocab data available).
type Estimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewEstimator builds an Estimator using the cl100k_base encoding,
// the same BPE family used by most current chat models.
func NewEstimator() *Estimator {
	return &Estimator{}
}

func (e *Estimator) encoding() *tiktoken.Tiktoken {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			e.enc = enc
		}
	})
	return e.enc
}

// Count estimates the token length of text.
func (e *Estimator) Count(text string) int {
	if enc := e.encoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return fallbackCount(text)
}

func fallbackCount(text string) int {
	const charsPerToken = 4
	n := len(text) / charsPerToken
	if n == 0 && text != "" {
		n = 1
	}
	return n
}
