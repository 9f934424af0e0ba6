package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Entry is one transcribed sentence together with its translation.
type Entry struct {
	Original    string `yaml:"original" json:"original"`
	Translation string `yaml:"translation" json:"translation"`
}

// Snapshot is an exportable view of the manager's state, used to carry
// context across a restart or to hand a session over to another process.
type Snapshot struct {
	Entries       []Entry `yaml:"entries" json:"entries"`
	Summary       string  `yaml:"summary" json:"summary"`
	SentenceCount int     `yaml:"sentence_count" json:"sentence_count"`
}

// ContextManager keeps a sliding window of recent sentences plus a rolling
// summary of everything that scrolled out of the window. The translation
// stage reads [ContextManager.CurrentContext] before each request so that
// pronouns and repeated terminology resolve consistently.
//
// The summary is refreshed every UpdateInterval sentences. The summariser
// call runs outside the lock; recording and reading context never block on
// the model. A failed refresh keeps the previous summary.
//
// All methods are safe for concurrent use.
type ContextManager struct {
	windowSize     int
	updateInterval int
	maxChars       int
	summariser     Summariser
	log            *slog.Logger

	mu            sync.Mutex
	entries       []Entry
	summary       string
	sentenceCount int
	refreshing    bool
}

// ContextManagerConfig configures a [ContextManager].
type ContextManagerConfig struct {
	// WindowSize is the number of recent entries kept verbatim.
	// Defaults to 5 if zero or negative.
	WindowSize int

	// UpdateInterval is the number of recorded sentences between summary
	// refreshes. Defaults to 3 if zero or negative.
	UpdateInterval int

	// MaxSummaryChars caps the rolling summary length in runes.
	// Defaults to 200 if zero or negative.
	MaxSummaryChars int

	// Summariser refreshes the rolling summary. Must not be nil.
	Summariser Summariser

	// Logger receives summary refresh failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewContextManager creates a new [ContextManager] with the given
// configuration.
func NewContextManager(cfg ContextManagerConfig) *ContextManager {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 5
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 3
	}
	if cfg.MaxSummaryChars <= 0 {
		cfg.MaxSummaryChars = 200
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &ContextManager{
		windowSize:     cfg.WindowSize,
		updateInterval: cfg.UpdateInterval,
		maxChars:       cfg.MaxSummaryChars,
		summariser:     cfg.Summariser,
		log:            log,
	}
}

// RecordSentence appends a completed sentence to the window, evicting the
// oldest entry when the window is full. Every UpdateInterval sentences it
// refreshes the rolling summary through the summariser.
func (cm *ContextManager) RecordSentence(ctx context.Context, original, translation string) {
	original = strings.TrimSpace(original)
	if original == "" {
		return
	}

	cm.mu.Lock()
	cm.entries = append(cm.entries, Entry{Original: original, Translation: translation})
	if len(cm.entries) > cm.windowSize {
		cm.entries = cm.entries[len(cm.entries)-cm.windowSize:]
	}
	cm.sentenceCount++

	refresh := cm.sentenceCount%cm.updateInterval == 0 && !cm.refreshing
	if !refresh {
		cm.mu.Unlock()
		return
	}
	cm.refreshing = true
	previous := cm.summary
	window := make([]Entry, len(cm.entries))
	copy(window, cm.entries)
	cm.mu.Unlock()

	// Summariser call runs unlocked; concurrent RecordSentence calls are
	// serialised through the refreshing flag so at most one model call is
	// in flight.
	summary, err := cm.summariser.Summarise(ctx, previous, window)

	cm.mu.Lock()
	cm.refreshing = false
	if err != nil {
		cm.log.Warn("context summary refresh failed, keeping previous summary", "error", err)
		cm.mu.Unlock()
		return
	}
	cm.summary = truncateRunes(summary, cm.maxChars)
	cm.mu.Unlock()
}

// CurrentContext renders the prompt context for the next translation request.
// It returns an empty string when nothing has been recorded yet.
func (cm *ContextManager) CurrentContext() string {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.summary == "" && len(cm.entries) == 0 {
		return ""
	}

	var sb strings.Builder
	if cm.summary != "" {
		fmt.Fprintf(&sb, "Context: %s\n\n", cm.summary)
	}
	if len(cm.entries) > 0 {
		sb.WriteString("Recent speech:\n")
		recent := cm.entries
		if len(recent) > 2 {
			recent = recent[len(recent)-2:]
		}
		for _, e := range recent {
			fmt.Fprintf(&sb, "- %s\n", e.Original)
		}
	}
	return sb.String()
}

// History returns a copy of the current window, oldest first.
func (cm *ContextManager) History() []Entry {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	out := make([]Entry, len(cm.entries))
	copy(out, cm.entries)
	return out
}

// SentenceCount returns the number of sentences recorded since the last Reset.
func (cm *ContextManager) SentenceCount() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.sentenceCount
}

// Export captures the manager's state for persistence or handover.
func (cm *ContextManager) Export() Snapshot {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	snap := Snapshot{
		Entries:       make([]Entry, len(cm.entries)),
		Summary:       cm.summary,
		SentenceCount: cm.sentenceCount,
	}
	copy(snap.Entries, cm.entries)
	return snap
}

// Import replaces the manager's state with a previously exported snapshot.
// Entries beyond the window size are discarded from the front, and the
// summary is re-truncated to the configured limit.
func (cm *ContextManager) Import(snap Snapshot) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	entries := snap.Entries
	if len(entries) > cm.windowSize {
		entries = entries[len(entries)-cm.windowSize:]
	}
	cm.entries = make([]Entry, len(entries))
	copy(cm.entries, entries)
	cm.summary = truncateRunes(snap.Summary, cm.maxChars)
	cm.sentenceCount = snap.SentenceCount
}

// Reset clears the window, summary, and sentence counter.
func (cm *ContextManager) Reset() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.entries = nil
	cm.summary = ""
	cm.sentenceCount = 0
}
