// Package whisper provides an [stt.Recognizer] backed by the whisper.cpp CGO
// bindings. The model is loaded once at startup and shared across calls; each
// Transcribe creates its own whisper context, so concurrent calls do not
// interfere.
//
// The whisper.cpp static library (libwhisper.a) and headers must be available
// at link time via LIBRARY_PATH and C_INCLUDE_PATH.
//
// whisper.cpp has no built-in voice-activity pre-filter; Request.VADFilter is
// approximated by the model's own no-speech suppression combined with the
// pipeline's upstream energy gate.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/linguaflow/pkg/provider/stt"
)

const defaultLanguage = "auto"

// Recognizer implements [stt.Recognizer] using a local whisper.cpp model.
type Recognizer struct {
	mu       sync.Mutex
	model    whisperlib.Model
	language string
	threads  int
}

// Compile-time interface assertion.
var _ stt.Recognizer = (*Recognizer)(nil)

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithLanguage sets the default transcription language (e.g. "ja").
// Request.Language takes precedence when set.
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// WithThreads sets the inference thread count. Zero lets whisper.cpp decide.
func WithThreads(n int) Option {
	return func(r *Recognizer) { r.threads = n }
}

// New loads the whisper.cpp model from modelPath. The caller must call Close
// when the recognizer is no longer needed.
func New(modelPath string, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	r := &Recognizer{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Close releases the model.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model == nil {
		return nil
	}
	err := r.model.Close()
	r.model = nil
	return err
}

// Warmup runs one inference over a second of silence so the first real chunk
// does not pay the model's cold-start cost.
func (r *Recognizer) Warmup(ctx context.Context) error {
	_, err := r.Transcribe(ctx, stt.Request{
		Samples:    make([]float32, 16000),
		SampleRate: 16000,
	})
	return err
}

// Transcribe implements [stt.Recognizer]. It runs batch inference over the
// chunk and returns segment texts with token-level word timing.
func (r *Recognizer) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context cancelled: %w", err)
	}
	r.mu.Lock()
	model := r.model
	r.mu.Unlock()
	if model == nil {
		return nil, stt.ErrNotReady
	}

	// A whisper context is not thread-safe, but the model can be shared;
	// create a fresh context per inference like the upstream examples do.
	wctx, err := model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	lang := req.Language
	if lang == "" {
		lang = r.language
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("whisper: set language %q: %w", lang, err)
	}
	wctx.SetTokenTimestamps(true)
	if r.threads > 0 {
		wctx.SetThreads(uint(r.threads))
	}

	if err := wctx.Process(req.Samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	res := &stt.Result{}
	var text strings.Builder
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}

		segText := strings.TrimSpace(seg.Text)
		if segText == "" {
			continue
		}
		text.WriteString(segText)

		out := stt.Segment{
			Text:  segText,
			Start: seg.Start,
			End:   seg.End,
		}
		for _, tok := range seg.Tokens {
			word := strings.TrimSpace(tok.Text)
			if word == "" || isSpecialToken(word) {
				continue
			}
			out.Words = append(out.Words, stt.Word{
				Text:  word,
				Start: tok.Start,
				End:   tok.End,
			})
		}
		res.Segments = append(res.Segments, out)
	}

	res.Text = text.String()
	return res, nil
}

// isSpecialToken reports whether a whisper token is a control marker such as
// "[_BEG_]" or "[_TT_42]" rather than spoken text.
func isSpecialToken(s string) bool {
	return strings.HasPrefix(s, "[_") || strings.HasPrefix(s, "<|")
}
