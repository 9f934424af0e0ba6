// Package malgo provides an [audio.Platform] backed by miniaudio via
// github.com/gen2brain/malgo, giving linguaflow real capture-device access on
// Windows (WASAPI), Linux (ALSA/PulseAudio), and macOS (CoreAudio).
//
// Frames are delivered by miniaudio on its own realtime thread; the adapter
// hands them off through a buffered channel with drop-on-full so the audio
// thread is never blocked by a slow consumer.
package malgo

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"

	malgolib "github.com/gen2brain/malgo"

	"github.com/MrWong99/linguaflow/pkg/audio"
)

// frameQueueDepth is the number of hardware frames buffered between the
// miniaudio callback thread and ReadFrame consumers.
const frameQueueDepth = 64

// preferredSampleRate is chosen when a device supports a rate range rather
// than a single native rate.
const preferredSampleRate = 48000

// Platform implements [audio.Platform] over a shared miniaudio context.
type Platform struct {
	mu  sync.Mutex
	ctx *malgolib.AllocatedContext
}

// Compile-time interface assertion.
var _ audio.Platform = (*Platform)(nil)

// New initialises the miniaudio context. Call [Platform.Close] when done.
func New() (*Platform, error) {
	mctx, err := malgolib.InitContext(nil, malgolib.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: init context: %w", err)
	}
	return &Platform{ctx: mctx}, nil
}

// Close releases the miniaudio context.
func (p *Platform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return nil
	}
	err := p.ctx.Uninit()
	p.ctx.Free()
	p.ctx = nil
	if err != nil {
		return fmt.Errorf("malgo: uninit context: %w", err)
	}
	return nil
}

// ListInputs implements [audio.Platform].
func (p *Platform) ListInputs(_ context.Context) ([]audio.DeviceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return nil, errors.New("malgo: platform is closed")
	}

	infos, err := p.ctx.Devices(malgolib.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo: enumerate capture devices: %w", err)
	}

	out := make([]audio.DeviceInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, audio.DeviceInfo{
			ID:         hex.EncodeToString(info.ID[:]),
			Name:       info.Name(),
			Channels:   clampChannels(info.MaxChannels),
			SampleRate: nativeRate(info.MinSampleRate, info.MaxSampleRate),
		})
	}
	return out, nil
}

// Open implements [audio.Platform]. An empty id opens the default capture
// device at its native format.
func (p *Platform) Open(ctx context.Context, id string) (audio.Capture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return nil, errors.New("malgo: platform is closed")
	}

	cfg := malgolib.DefaultDeviceConfig(malgolib.Capture)
	cfg.Capture.Format = malgolib.FormatF32
	cfg.Alsa.NoMMap = 1

	info := audio.DeviceInfo{ID: id, Name: "default", Channels: 2, SampleRate: preferredSampleRate}
	if id != "" {
		found, deviceID, err := p.lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		info = found
		cfg.Capture.DeviceID = deviceID.Pointer()
	}
	cfg.Capture.Channels = uint32(info.Channels)
	cfg.SampleRate = uint32(info.SampleRate)

	c := &capture{
		info:   info,
		frames: make(chan []float32, frameQueueDepth),
		done:   make(chan struct{}),
	}

	callbacks := malgolib.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			if frameCount == 0 || len(input) == 0 {
				return
			}
			frame := bytesToFloat32(input)
			select {
			case c.frames <- frame:
			default:
				// Consumer is behind; dropping here keeps the realtime
				// audio thread from blocking.
			}
		},
	}

	dev, err := malgolib.InitDevice(p.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgo: open device %q: %w", id, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("malgo: start device %q: %w", id, err)
	}
	c.dev = dev
	return c, nil
}

// lookup resolves a hex-encoded device ID to its enumerated info and raw ID.
func (p *Platform) lookup(_ context.Context, id string) (audio.DeviceInfo, malgolib.DeviceID, error) {
	var raw malgolib.DeviceID
	infos, err := p.ctx.Devices(malgolib.Capture)
	if err != nil {
		return audio.DeviceInfo{}, raw, fmt.Errorf("malgo: enumerate capture devices: %w", err)
	}
	for _, info := range infos {
		if hex.EncodeToString(info.ID[:]) == id {
			raw = info.ID
			return audio.DeviceInfo{
				ID:         id,
				Name:       info.Name(),
				Channels:   clampChannels(info.MaxChannels),
				SampleRate: nativeRate(info.MinSampleRate, info.MaxSampleRate),
			}, raw, nil
		}
	}
	return audio.DeviceInfo{}, raw, fmt.Errorf("malgo: no capture device with id %q", id)
}

// capture implements [audio.Capture] for a running miniaudio device.
type capture struct {
	info   audio.DeviceInfo
	dev    *malgolib.Device
	frames chan []float32

	once sync.Once
	done chan struct{}
}

func (c *capture) Info() audio.DeviceInfo { return c.info }

func (c *capture) ReadFrame(ctx context.Context) ([]float32, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.done:
		return nil, errors.New("malgo: capture is closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *capture) Close() error {
	c.once.Do(func() {
		close(c.done)
		if c.dev != nil {
			c.dev.Uninit()
		}
	})
	return nil
}

// bytesToFloat32 reinterprets little-endian IEEE-754 float32 PCM bytes as a
// sample slice.
func bytesToFloat32(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := range n {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : i*4+4]))
	}
	return out
}

func clampChannels(ch uint32) int {
	if ch == 0 {
		return 1
	}
	if ch > 2 {
		return 2
	}
	return int(ch)
}

func nativeRate(min, max uint32) int {
	if min == 0 && max == 0 {
		return preferredSampleRate
	}
	if min <= preferredSampleRate && preferredSampleRate <= max {
		return preferredSampleRate
	}
	return int(max)
}
