// Package mock provides in-memory implementations of [audio.Platform] and
// [audio.Capture] for unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// tests can assert on call counts and arguments, and expose exported fields
// the test sets to control return values.
//
// Typical usage:
//
//	cap := mock.NewCapture(audio.DeviceInfo{ID: "d1", Channels: 2, SampleRate: 48000})
//	cap.QueueFrames(frame1, frame2)
//	platform := &mock.Platform{OpenResult: cap}
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/MrWong99/linguaflow/pkg/audio"
)

// Platform is a mock implementation of [audio.Platform].
type Platform struct {
	mu sync.Mutex

	// ListInputsResult is returned by ListInputs.
	ListInputsResult []audio.DeviceInfo

	// ListInputsError is returned by ListInputs.
	ListInputsError error

	// OpenResult is the capture handle returned by Open.
	OpenResult audio.Capture

	// OpenError is returned by Open.
	OpenError error

	// OpenCalls records the device IDs passed to Open, in order.
	OpenCalls []string
}

// ListInputs implements [audio.Platform].
func (p *Platform) ListInputs(_ context.Context) ([]audio.DeviceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ListInputsResult, p.ListInputsError
}

// Open implements [audio.Platform]. Records the call and returns
// OpenResult / OpenError.
func (p *Platform) Open(_ context.Context, id string) (audio.Capture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OpenCalls = append(p.OpenCalls, id)
	if p.OpenError != nil {
		return nil, p.OpenError
	}
	return p.OpenResult, nil
}

// Capture is a mock implementation of [audio.Capture] that serves frames from
// an in-memory queue. When the queue empties, ReadFrame blocks until more
// frames are queued or the handle is closed.
type Capture struct {
	info audio.DeviceInfo

	mu     sync.Mutex
	frames chan []float32
	closed bool

	// ReadErrors is a queue of errors returned before real frames; use it to
	// exercise transient-read-failure handling. Popped one per ReadFrame call.
	ReadErrors []error

	// CallCountClose records how many times Close was called.
	CallCountClose int

	done chan struct{}
}

// NewCapture creates a mock capture handle reporting the given device info.
func NewCapture(info audio.DeviceInfo) *Capture {
	return &Capture{
		info:   info,
		frames: make(chan []float32, 256),
		done:   make(chan struct{}),
	}
}

// QueueFrames appends frames to be served by subsequent ReadFrame calls.
func (c *Capture) QueueFrames(frames ...[]float32) {
	for _, f := range frames {
		c.frames <- f
	}
}

// Info implements [audio.Capture].
func (c *Capture) Info() audio.DeviceInfo { return c.info }

// ReadFrame implements [audio.Capture]. Pops a queued error first if any,
// then blocks for the next queued frame.
func (c *Capture) ReadFrame(ctx context.Context) ([]float32, error) {
	c.mu.Lock()
	if len(c.ReadErrors) > 0 {
		err := c.ReadErrors[0]
		c.ReadErrors = c.ReadErrors[1:]
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	select {
	case f := <-c.frames:
		return f, nil
	case <-c.done:
		return nil, errors.New("mock capture: closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements [audio.Capture]. Unblocks any pending ReadFrame.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountClose++
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// Compile-time interface assertions.
var (
	_ audio.Platform = (*Platform)(nil)
	_ audio.Capture  = (*Capture)(nil)
)
