package resilience

import (
	"context"

	"github.com/MrWong99/linguaflow/pkg/provider/stt"
)

// RecognizerFallback implements [stt.Recognizer] with automatic failover
// across multiple speech-to-text backends, e.g. a large local model as
// primary and a smaller one as a safety net when the large model keeps
// timing out.
type RecognizerFallback struct {
	group *FallbackGroup[stt.Recognizer]
}

// Compile-time interface assertion.
var _ stt.Recognizer = (*RecognizerFallback)(nil)

// NewRecognizerFallback creates a [RecognizerFallback] with primary as the
// preferred backend.
func NewRecognizerFallback(primary stt.Recognizer, primaryName string, cfg FallbackConfig) *RecognizerFallback {
	return &RecognizerFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional recognizer as a fallback.
func (f *RecognizerFallback) AddFallback(name string, rec stt.Recognizer) {
	f.group.AddFallback(name, rec)
}

// Transcribe runs the request against the first healthy backend.
func (f *RecognizerFallback) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	return ExecuteWithResult(f.group, func(r stt.Recognizer) (*stt.Result, error) {
		return r.Transcribe(ctx, req)
	})
}
