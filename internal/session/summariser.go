// Package session maintains conversational context across a translation
// session.
//
// It includes the rolling context window ([ContextManager]) and the rolling
// summary generation behind it ([Summariser], [LLMSummariser],
// [HeuristicSummariser]).
//
// All exported types are safe for concurrent use.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/linguaflow/pkg/provider/llm"
)

// summarisationPrompt is the system prompt sent to the LLM when condensing
// older conversation history into a rolling summary.
const summarisationPrompt = `Summarise the following transcribed speech in one or two short sentences.
Preserve: the topic under discussion, names, numbers, and any decisions or requests.
The summary is used as translation context, so keep terminology exactly as spoken.`

// Summariser produces a condensed summary of recent conversation entries.
type Summariser interface {
	// Summarise takes recent entries and the previous summary and returns an
	// updated condensed summary string.
	Summarise(ctx context.Context, previous string, entries []Entry) (string, error)
}

// LLMSummariser uses an LLM generator to build the rolling summary.
type LLMSummariser struct {
	gen llm.Generator
}

// NewLLMSummariser creates a new [LLMSummariser] backed by the given generator.
func NewLLMSummariser(gen llm.Generator) *LLMSummariser {
	return &LLMSummariser{gen: gen}
}

var _ Summariser = (*LLMSummariser)(nil)

// Summarise formats the previous summary plus the recent entries into a single
// user message and asks the model for an updated summary.
func (s *LLMSummariser) Summarise(ctx context.Context, previous string, entries []Entry) (string, error) {
	if len(entries) == 0 {
		return previous, nil
	}

	var sb strings.Builder
	if previous != "" {
		fmt.Fprintf(&sb, "Earlier summary: %s\n\n", previous)
	}
	sb.WriteString("New speech:\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, e.Original)
	}

	out, err := s.gen.Complete(ctx, llm.Request{
		System:      summarisationPrompt,
		Prompt:      sb.String(),
		Temperature: 0.3,
		MaxTokens:   100,
	})
	if err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}

	return strings.TrimSpace(out), nil
}

// HeuristicSummariser builds a summary without any model call by chaining the
// openings of the most recent entries. It serves as the fallback when no LLM
// is configured or the primary summariser keeps failing.
type HeuristicSummariser struct {
	// MaxEntries caps how many trailing entries contribute. Zero means 3.
	MaxEntries int

	// MaxRunesPerEntry caps the opening taken from each entry. Zero means 30.
	MaxRunesPerEntry int
}

var _ Summariser = (*HeuristicSummariser)(nil)

// Summarise joins the openings of the last few entries with arrows so the
// reader can follow the drift of the conversation.
func (s *HeuristicSummariser) Summarise(_ context.Context, _ string, entries []Entry) (string, error) {
	maxEntries := s.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 3
	}
	maxRunes := s.MaxRunesPerEntry
	if maxRunes <= 0 {
		maxRunes = 30
	}

	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, truncateRunes(strings.TrimSpace(e.Original), maxRunes))
	}
	return strings.Join(parts, " → "), nil
}

// truncateRunes shortens s to at most n runes. Multi-byte scripts must not be
// cut mid-character, so this counts runes rather than bytes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
