// Package stt defines the Recognizer interface for speech-to-text backends.
//
// A recognizer wraps a transcription engine (a local whisper.cpp model, a
// remote API, …) and exposes a uniform batch interface: the pipeline hands it
// one normalised audio chunk at a time and receives the recognised text with
// per-word timing when the backend supports it.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
	"time"
)

// ErrNotReady is returned by recognizers whose backing model or connection is
// not (yet) available. The transcription stage treats it as transient: the
// affected chunk is dropped and the stage keeps running so it can recover
// once the capability becomes ready.
var ErrNotReady = errors.New("stt: recognizer not ready")

// Word is one recognised word with its timing inside the source audio.
type Word struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Segment is a contiguous recognised span. Backends that do not segment
// return a single Segment covering the whole result.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration

	// Words holds per-word detail when the backend supports it; nil otherwise.
	Words []Word
}

// Result is the outcome of one Transcribe call. An empty Text with no
// segments means the audio contained no recognisable speech.
type Result struct {
	// Text is the concatenation of all segment texts.
	Text string

	// Segments lists the recognised spans in order.
	Segments []Segment
}

// Request carries one chunk of audio to be recognised.
type Request struct {
	// Samples is mono float32 PCM in [-1, 1].
	Samples []float32

	// SampleRate of Samples in Hz.
	SampleRate int

	// Language is the expected speech language (e.g. "ja"). Empty lets the
	// backend auto-detect if supported.
	Language string

	// VADFilter asks the backend to suppress output for non-speech audio so
	// silence-padded chunks do not produce spurious text. Backends without a
	// native voice-activity filter approximate it (see each implementation).
	VADFilter bool
}

// Recognizer is the abstraction over any speech-to-text backend.
//
// Transcribe must propagate context cancellation promptly and must be safe
// for concurrent use, although the pipeline's transcription stage calls it
// from a single worker.
type Recognizer interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
}
