// Package mock provides an in-memory [stt.Recognizer] for unit tests.
//
// The mock records every request and serves canned results. Set the exported
// Result fields before use; inspect the Call fields after.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/linguaflow/pkg/provider/stt"
)

// Recognizer is a mock implementation of [stt.Recognizer].
type Recognizer struct {
	mu sync.Mutex

	// Results is a queue of results returned by successive Transcribe calls.
	// When exhausted, Result is returned instead.
	Results []*stt.Result

	// Result is the default result returned when Results is empty.
	// Nil yields an empty result.
	Result *stt.Result

	// Err is returned by every Transcribe call when non-nil.
	Err error

	// Calls records all requests in order.
	Calls []stt.Request
}

// Compile-time interface assertion.
var _ stt.Recognizer = (*Recognizer)(nil)

// Transcribe implements [stt.Recognizer].
func (r *Recognizer) Transcribe(_ context.Context, req stt.Request) (*stt.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls = append(r.Calls, req)
	if r.Err != nil {
		return nil, r.Err
	}
	if len(r.Results) > 0 {
		res := r.Results[0]
		r.Results = r.Results[1:]
		return res, nil
	}
	if r.Result != nil {
		return r.Result, nil
	}
	return &stt.Result{}, nil
}

// SetErr replaces Err under the mock's lock, safe while a stage worker is
// calling Transcribe concurrently.
func (r *Recognizer) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Err = err
}

// CallCount returns the number of Transcribe invocations so far.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}
