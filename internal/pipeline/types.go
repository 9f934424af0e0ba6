// Package pipeline wires audio capture, transcription, and translation into a
// live data flow.
//
// Each stage owns one worker goroutine and communicates exclusively through
// bounded drop-oldest queues, so a stalled stage never blocks its upstream;
// it only loses the oldest pending items. The [Orchestrator] owns stage
// lifecycle and runs the forwarding loops that move items between stages and
// out to the display sink.
package pipeline

import "time"

// WordSpan is a single recognized word with its timing inside the chunk.
type WordSpan struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Transcript is one recognizer output: the full chunk text plus the flattened
// word list across all segments.
type Transcript struct {
	Text  string
	Words []WordSpan
}

// Translation is one completed translation together with the context snapshot
// that was current when it was produced.
type Translation struct {
	Original    string
	Translation string
	Context     string
}
