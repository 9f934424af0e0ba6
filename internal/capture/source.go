// Package capture turns a platform audio device into a stream of fixed-size,
// normalized mono chunks ready for transcription.
//
// A [Source] owns the capture goroutine. Frames arrive from the device in
// whatever channel count and sample rate the hardware prefers; the source
// downmixes, low-pass filters, resamples, slices into exact chunks, and
// normalizes before handing each chunk to the bounded output queue. When the
// consumer falls behind, the oldest chunk is dropped so the stream stays
// close to live.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/linguaflow/pkg/audio"
	"github.com/MrWong99/linguaflow/pkg/queue"
)

// ErrAlreadyRunning is returned by [Source.Start] when the capture loop is
// already active.
var ErrAlreadyRunning = errors.New("capture: source already running")

// ErrNoDevice is returned by [Source.Start] when no device has been opened.
var ErrNoDevice = errors.New("capture: no device open")

// readRetryDelay is the pause after a transient device read error before the
// loop tries again.
const readRetryDelay = 100 * time.Millisecond

// Config configures a [Source].
type Config struct {
	// SampleRate is the output sample rate in Hz. Default: 16000.
	SampleRate int

	// ChunkDuration is the length of each emitted chunk. Default: 3s.
	ChunkDuration time.Duration

	// QueueSize is the capacity of the output queue. Default: 10.
	QueueSize int

	// NormalizeTarget is the peak level chunks are scaled to. Zero disables
	// normalization.
	NormalizeTarget float32

	// Logger receives device and drop events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Source captures audio from one input device and emits fixed-size chunks.
// Open, Start, Stop, and Close form the lifecycle; Next is the consumer side.
type Source struct {
	platform audio.Platform
	cfg      Config
	log      *slog.Logger
	out      *queue.Bounded[audio.Chunk]

	mu      sync.Mutex
	capture audio.Capture
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSource creates a Source over the given platform. Zero-value config
// fields are replaced with defaults.
func NewSource(platform audio.Platform, cfg Config) *Source {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.ChunkDuration <= 0 {
		cfg.ChunkDuration = 3 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Source{
		platform: platform,
		cfg:      cfg,
		log:      cfg.Logger,
		out:      queue.NewBounded[audio.Chunk](cfg.QueueSize),
	}
}

// ListDevices enumerates the platform's input devices.
func (s *Source) ListDevices(ctx context.Context) ([]audio.DeviceInfo, error) {
	return s.platform.ListInputs(ctx)
}

// Open acquires the input device with the given ID. An empty ID selects the
// platform default. Any previously opened device is closed first.
func (s *Source) Open(ctx context.Context, deviceID string) error {
	dev, err := s.platform.Open(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("capture: open device %q: %w", deviceID, err)
	}

	s.mu.Lock()
	old := s.capture
	s.capture = dev
	s.mu.Unlock()

	if old != nil {
		if cerr := old.Close(); cerr != nil {
			s.log.Warn("closing previous capture device", "error", cerr)
		}
	}

	info := dev.Info()
	s.log.Info("capture device open",
		"device", info.Name,
		"channels", info.Channels,
		"sample_rate", info.SampleRate)
	return nil
}

// Start launches the capture loop. It fails with [ErrAlreadyRunning] if the
// loop is active and [ErrNoDevice] if Open has not succeeded.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if s.capture == nil {
		return ErrNoDevice
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.capture, s.done)
	return nil
}

// Stop halts the capture loop and waits for it to exit. Stopping a source
// that is not running is a no-op. Chunks already queued remain readable.
func (s *Source) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Close stops the loop and releases the device.
func (s *Source) Close() error {
	s.Stop()

	s.mu.Lock()
	dev := s.capture
	s.capture = nil
	s.mu.Unlock()

	if dev != nil {
		return dev.Close()
	}
	return nil
}

// Next returns the next queued chunk, waiting up to timeout. The second
// return value is false when the wait expired.
func (s *Source) Next(timeout time.Duration) (audio.Chunk, bool) {
	return s.out.Receive(timeout)
}

// Dropped returns the number of chunks evicted because the consumer fell
// behind.
func (s *Source) Dropped() int64 {
	return s.out.Dropped()
}

// chunkSamples returns the exact number of output samples per chunk.
func (s *Source) chunkSamples() int {
	return int(float64(s.cfg.SampleRate) * s.cfg.ChunkDuration.Seconds())
}

// loop reads device frames, conditions them, and emits exact-size chunks
// until ctx is cancelled. Leftover samples carry over to the next chunk so
// no audio is lost at chunk boundaries.
func (s *Source) loop(ctx context.Context, dev audio.Capture, done chan<- struct{}) {
	defer close(done)

	info := dev.Info()
	chunkSize := s.chunkSamples()
	buf := make([]float32, 0, chunkSize*2)
	var emitted time.Duration

	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := dev.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			s.log.Warn("device read failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}
		if len(frame) == 0 {
			continue
		}

		buf = append(buf, s.condition(frame, info)...)

		for len(buf) >= chunkSize {
			samples := make([]float32, chunkSize)
			copy(samples, buf[:chunkSize])
			buf = buf[chunkSize:]

			if s.cfg.NormalizeTarget > 0 {
				audio.NormalizePeak(samples, s.cfg.NormalizeTarget)
			}

			chunk := audio.Chunk{
				Samples:    samples,
				SampleRate: s.cfg.SampleRate,
				Timestamp:  emitted,
			}
			emitted += chunk.Duration()

			if s.out.Send(chunk) {
				s.log.Debug("audio queue full, dropped oldest chunk",
					"dropped_total", s.out.Dropped())
			}
		}
	}
}

// condition converts a raw device frame to the output format: mono, low-pass
// filtered against aliasing, and resampled to the configured rate.
func (s *Source) condition(frame []float32, info audio.DeviceInfo) []float32 {
	mono := audio.DownmixMono(frame, info.Channels)

	if info.SampleRate == s.cfg.SampleRate || info.SampleRate <= 0 {
		return mono
	}

	if info.SampleRate > s.cfg.SampleRate {
		// Remove content above the target Nyquist before decimating.
		cutoff := 0.8 * float64(s.cfg.SampleRate) / 2
		mono = audio.LowPass(mono, info.SampleRate, cutoff)
	}
	return audio.Resample(mono, info.SampleRate, s.cfg.SampleRate)
}
