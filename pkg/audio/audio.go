// Package audio defines the sample types, format conversion routines, and
// capture-device abstraction for the linguaflow pipeline.
//
// The atomic unit of transport between capture and recognition is the [Chunk]:
// a fixed-length window of mono float32 samples at the pipeline's target rate.
// Device-native audio (arbitrary rate and channel count) is normalised by the
// conversion helpers in this package before it ever reaches a Chunk.
//
// The capture abstraction is split in two, mirroring the provider pattern used
// elsewhere in the repo:
//
//   - [Platform] — enumerates input devices and opens one of them.
//   - [Capture] — an open device handle delivering raw interleaved frames.
//
// Platform implementations live in adapter subpackages (audio/malgo for real
// hardware, audio/mock for tests). This package lives under pkg/ because
// external code is expected to implement [Platform] for other audio backends.
package audio

import (
	"context"
	"time"
)

// Chunk is a fixed-length window of normalised mono audio.
// Chunks are immutable once emitted by the capture source.
type Chunk struct {
	// Samples holds mono float32 PCM in [-1, 1] at SampleRate.
	// Length is always sampleRate × chunkDuration for the pipeline's lifetime.
	Samples []float32

	// SampleRate in Hz (typically 16000 for speech recognition).
	SampleRate int

	// Timestamp marks the start of this chunk relative to capture start.
	Timestamp time.Duration
}

// Duration returns the chunk's play time.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// DeviceInfo describes one audio input (or loopback) device.
type DeviceInfo struct {
	// ID is the platform-specific device identifier. An empty ID passed to
	// [Platform.Open] selects the platform's default input device.
	ID string

	// Name is the human-readable device name.
	Name string

	// Channels is the device's native channel count.
	Channels int

	// SampleRate is the device's native sample rate in Hz.
	SampleRate int
}

// Capture is an open handle on a single audio input device.
//
// Implementations must be safe for concurrent use of Close with a blocked
// ReadFrame; Close must unblock any in-flight read.
type Capture interface {
	// Info returns the native format of the opened device.
	Info() DeviceInfo

	// ReadFrame blocks until one hardware-sized frame of interleaved
	// float32 samples is available, at the device's native rate and channel
	// count. Returns an error when the device fails or the handle is closed;
	// transient read errors are retryable.
	ReadFrame(ctx context.Context) ([]float32, error)

	// Close releases the device. Safe to call more than once.
	Close() error
}

// Platform is the entry point for an audio capture backend.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// ListInputs enumerates the available input and loopback devices.
	ListInputs(ctx context.Context) ([]DeviceInfo, error)

	// Open binds the device identified by id and returns a live [Capture]
	// handle. An empty id selects the default input device.
	Open(ctx context.Context, id string) (Capture, error)
}
