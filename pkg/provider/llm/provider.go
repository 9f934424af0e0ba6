// Package llm defines the text-generation provider abstraction used for
// translation and context summarisation. Implementations live in subpackages
// (anyllm, openai, mock).
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrNotReady is returned when a generator is asked to complete before its
// backend is initialised, or after it has been closed.
var ErrNotReady = errors.New("llm: generator not ready")

// Request is a single completion request.
type Request struct {
	// System is the system prompt. Empty means no system message.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// Temperature is the sampling temperature. Translation uses a low
	// value so repeated phrases translate consistently.
	Temperature float64

	// Stop lists sequences that end generation early. Backends without
	// native stop support truncate the result at the first occurrence.
	Stop []string
}

// Generator produces a completion for a request. Implementations must be safe
// for concurrent use.
type Generator interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// TruncateAtStop cuts s at the first occurrence of any stop sequence. It is
// shared by backends that cannot pass stop sequences through natively.
func TruncateAtStop(s string, stop []string) string {
	cut := len(s)
	for _, seq := range stop {
		if seq == "" {
			continue
		}
		if i := strings.Index(s, seq); i >= 0 && i < cut {
			cut = i
		}
	}
	return s[:cut]
}
