// Package mock provides an in-memory [llm.Generator] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/linguaflow/pkg/provider/llm"
)

// Generator is a configurable llm.Generator. Results are returned in order;
// once the queue is exhausted, Result is returned for every call.
type Generator struct {
	mu sync.Mutex

	// Results is a FIFO queue of responses consumed by successive calls.
	Results []string

	// Result is the fallback response when Results is empty.
	Result string

	// Err, when set, is returned by every call instead of a response.
	Err error

	// Delay, when set, makes each call block for this long or until the
	// context is cancelled.
	Delay func(ctx context.Context) error

	// Calls records every request received.
	Calls []llm.Request
}

var _ llm.Generator = (*Generator)(nil)

// Complete implements llm.Generator.
func (g *Generator) Complete(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	g.Calls = append(g.Calls, req)
	var out string
	if len(g.Results) > 0 {
		out = g.Results[0]
		g.Results = g.Results[1:]
	} else {
		out = g.Result
	}
	err := g.Err
	delay := g.Delay
	g.mu.Unlock()

	if delay != nil {
		if derr := delay(ctx); derr != nil {
			return "", derr
		}
	}
	if err != nil {
		return "", err
	}
	return llm.TruncateAtStop(out, req.Stop), nil
}

// CallCount returns the number of Complete calls seen so far.
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

// LastCall returns the most recent request, or a zero request if none.
func (g *Generator) LastCall() llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Calls) == 0 {
		return llm.Request{}
	}
	return g.Calls[len(g.Calls)-1]
}
