package capture

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/MrWong99/linguaflow/pkg/audio"
	"github.com/MrWong99/linguaflow/pkg/audio/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestSource wires a mock capture that is already open, emitting mono
// 16 kHz frames so no resampling happens.
func newTestSource(t *testing.T, cfg Config) (*Source, *mock.Capture) {
	t.Helper()
	dev := mock.NewCapture(audio.DeviceInfo{
		ID:         "mic0",
		Name:       "Test Mic",
		Channels:   1,
		SampleRate: cfg.SampleRate,
	})
	platform := &mock.Platform{OpenResult: dev}

	cfg.Logger = testLogger()
	src := NewSource(platform, cfg)
	if err := src.Open(context.Background(), "mic0"); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src, dev
}

func TestSourceEmitsExactChunks(t *testing.T) {
	src, dev := newTestSource(t, Config{
		SampleRate:    100,
		ChunkDuration: time.Second, // 100 samples per chunk
	})

	// 250 samples: two full chunks plus a 50-sample remainder.
	frame := make([]float32, 250)
	for i := range frame {
		frame[i] = float32(i)
	}
	dev.QueueFrames(frame)

	if err := src.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	first, ok := src.Next(time.Second)
	if !ok {
		t.Fatal("no first chunk")
	}
	if len(first.Samples) != 100 {
		t.Fatalf("first chunk has %d samples, want 100", len(first.Samples))
	}
	if first.Samples[0] != 0 || first.Samples[99] != 99 {
		t.Errorf("first chunk contents wrong: [%v..%v]", first.Samples[0], first.Samples[99])
	}
	if first.Timestamp != 0 {
		t.Errorf("first chunk Timestamp = %v, want 0", first.Timestamp)
	}

	second, ok := src.Next(time.Second)
	if !ok {
		t.Fatal("no second chunk")
	}
	if second.Samples[0] != 100 {
		t.Errorf("second chunk starts at %v, want 100", second.Samples[0])
	}
	if second.Timestamp != time.Second {
		t.Errorf("second chunk Timestamp = %v, want 1s", second.Timestamp)
	}

	// The 50-sample remainder must not surface as a partial chunk.
	if _, ok := src.Next(50 * time.Millisecond); ok {
		t.Error("partial chunk emitted, remainder should stay buffered")
	}
}

func TestSourceRemainderCarriesOver(t *testing.T) {
	src, dev := newTestSource(t, Config{
		SampleRate:    100,
		ChunkDuration: time.Second,
	})

	// 60 + 60 samples: the second frame completes the first chunk.
	a := make([]float32, 60)
	b := make([]float32, 60)
	for i := range a {
		a[i] = 1
	}
	for i := range b {
		b[i] = 2
	}
	dev.QueueFrames(a, b)

	if err := src.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	chunk, ok := src.Next(time.Second)
	if !ok {
		t.Fatal("no chunk")
	}
	if chunk.Samples[59] != 1 || chunk.Samples[60] != 2 {
		t.Errorf("chunk boundary wrong: [59]=%v [60]=%v", chunk.Samples[59], chunk.Samples[60])
	}
}

func TestSourceStartTwiceFails(t *testing.T) {
	src, _ := newTestSource(t, Config{SampleRate: 100, ChunkDuration: time.Second})

	if err := src.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := src.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}
}

func TestSourceStartWithoutDevice(t *testing.T) {
	src := NewSource(&mock.Platform{}, Config{Logger: testLogger()})
	if err := src.Start(); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Start() = %v, want ErrNoDevice", err)
	}
}

func TestSourceOpenFailure(t *testing.T) {
	platform := &mock.Platform{OpenError: errors.New("device busy")}
	src := NewSource(platform, Config{Logger: testLogger()})

	if err := src.Open(context.Background(), "mic0"); err == nil {
		t.Fatal("Open() succeeded, want error")
	}
	if len(platform.OpenCalls) != 1 || platform.OpenCalls[0] != "mic0" {
		t.Errorf("OpenCalls = %v", platform.OpenCalls)
	}
}

func TestSourceRecoversFromTransientReadError(t *testing.T) {
	src, dev := newTestSource(t, Config{
		SampleRate:    100,
		ChunkDuration: 100 * time.Millisecond, // 10 samples
	})
	dev.ReadErrors = []error{errors.New("overrun")}
	dev.QueueFrames(make([]float32, 10))

	if err := src.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if _, ok := src.Next(2 * time.Second); !ok {
		t.Error("no chunk after transient read error")
	}
}

func TestSourceStopIdempotent(t *testing.T) {
	src, _ := newTestSource(t, Config{SampleRate: 100, ChunkDuration: time.Second})

	if err := src.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	src.Stop()
	src.Stop() // second call must not panic or block

	// Restart works after a stop.
	if err := src.Start(); err != nil {
		t.Errorf("Start() after Stop() = %v", err)
	}
}

func TestSourceNormalizesChunks(t *testing.T) {
	src, dev := newTestSource(t, Config{
		SampleRate:      100,
		ChunkDuration:   time.Second,
		NormalizeTarget: 0.8,
	})

	frame := make([]float32, 100)
	frame[10] = 0.2
	dev.QueueFrames(frame)

	if err := src.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	chunk, ok := src.Next(time.Second)
	if !ok {
		t.Fatal("no chunk")
	}
	if got := chunk.Samples[10]; got < 0.79 || got > 0.81 {
		t.Errorf("peak after normalization = %v, want ~0.8", got)
	}
}

func TestSourceDownmixesStereo(t *testing.T) {
	dev := mock.NewCapture(audio.DeviceInfo{
		ID:         "mic0",
		Channels:   2,
		SampleRate: 100,
	})
	platform := &mock.Platform{OpenResult: dev}
	src := NewSource(platform, Config{
		SampleRate:    100,
		ChunkDuration: 100 * time.Millisecond, // 10 mono samples
		Logger:        testLogger(),
	})
	if err := src.Open(context.Background(), ""); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { src.Close() })

	// 10 interleaved stereo pairs of (0.2, 0.4) average to 0.3.
	frame := make([]float32, 20)
	for i := 0; i < 20; i += 2 {
		frame[i] = 0.2
		frame[i+1] = 0.4
	}
	dev.QueueFrames(frame)

	if err := src.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	chunk, ok := src.Next(time.Second)
	if !ok {
		t.Fatal("no chunk")
	}
	if len(chunk.Samples) != 10 {
		t.Fatalf("chunk has %d samples, want 10", len(chunk.Samples))
	}
	if got := chunk.Samples[0]; got < 0.29 || got > 0.31 {
		t.Errorf("downmixed sample = %v, want ~0.3", got)
	}
}
