// Package display delivers pipeline output to its consumers: the process log
// and any number of websocket subscribers (overlay windows, OBS browser
// sources, caption viewers).
package display

import (
	"log/slog"

	"github.com/MrWong99/linguaflow/internal/pipeline"
)

// Sink receives display events from the pipeline. Implementations must be
// non-blocking; slow consumers buffer or drop internally.
type Sink interface {
	// PartialWord is called once per recognized word before translation.
	PartialWord(word string)

	// Translation is called once per completed translation.
	Translation(t pipeline.Translation)
}

// LogSink writes display events to a structured logger. Partial words are
// logged at debug level so the info stream stays one line per translation.
type LogSink struct {
	Log *slog.Logger
}

var _ Sink = (*LogSink)(nil)

// PartialWord implements [Sink].
func (s *LogSink) PartialWord(word string) {
	s.logger().Debug("partial word", "word", word)
}

// Translation implements [Sink].
func (s *LogSink) Translation(t pipeline.Translation) {
	s.logger().Info("translation",
		"original", t.Original,
		"translation", t.Translation)
}

func (s *LogSink) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// Multi fans display events out to several sinks in order.
type Multi []Sink

var _ Sink = (Multi)(nil)

// PartialWord implements [Sink].
func (m Multi) PartialWord(word string) {
	for _, s := range m {
		s.PartialWord(word)
	}
}

// Translation implements [Sink].
func (m Multi) Translation(t pipeline.Translation) {
	for _, s := range m {
		s.Translation(t)
	}
}

// Callbacks adapts a sink into the orchestrator's callback pair.
func Callbacks(s Sink) pipeline.Callbacks {
	return pipeline.Callbacks{
		OnPartialWord: s.PartialWord,
		OnTranslation: s.Translation,
	}
}
