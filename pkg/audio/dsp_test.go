package audio

import (
	"math"
	"testing"
)

func TestDownmixMono(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float32
		channels int
		want     []float32
	}{
		{
			name:     "mono passthrough",
			samples:  []float32{0.1, 0.2, 0.3},
			channels: 1,
			want:     []float32{0.1, 0.2, 0.3},
		},
		{
			name:     "stereo average",
			samples:  []float32{1, 0, 0.5, -0.5, -1, 1},
			channels: 2,
			want:     []float32{0.5, 0, 0},
		},
		{
			name:     "quad average",
			samples:  []float32{1, 1, 1, 1, 0, 0.4, 0.4, 0},
			channels: 4,
			want:     []float32{1, 0.2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DownmixMono(tt.samples, tt.channels)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if diff := got[i] - tt.want[i]; diff > 1e-6 || diff < -1e-6 {
					t.Errorf("sample %d = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResample_Length(t *testing.T) {
	tests := []struct {
		name    string
		srcLen  int
		srcRate int
		dstRate int
		wantLen int
	}{
		{"48k to 16k", 4800, 48000, 16000, 1600},
		{"44.1k to 16k", 4410, 44100, 16000, 1600},
		{"16k to 48k", 1600, 16000, 48000, 4800},
		{"same rate", 1600, 16000, 16000, 1600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := make([]float32, tt.srcLen)
			got := Resample(src, tt.srcRate, tt.dstRate)
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestResample_PreservesDC(t *testing.T) {
	// A constant signal must survive linear interpolation unchanged.
	src := make([]float32, 1000)
	for i := range src {
		src[i] = 0.5
	}
	got := Resample(src, 44100, 16000)
	for i, s := range got {
		if s < 0.499 || s > 0.501 {
			t.Fatalf("sample %d = %f, want ~0.5", i, s)
		}
	}
}

func TestLowPass_AttenuatesAboveCutoff(t *testing.T) {
	const rate = 16000
	makeSine := func(freq float64) []float32 {
		out := make([]float32, rate)
		for i := range out {
			out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / rate))
		}
		return out
	}

	// Skip the first quarter to let the filter settle.
	energy := func(s []float32) float64 { return RMS(s[len(s)/4:]) }

	low := LowPass(makeSine(200), rate, 2000)
	high := LowPass(makeSine(7000), rate, 2000)

	if e := energy(low); e < 0.5 {
		t.Errorf("passband energy = %f, want mostly preserved", e)
	}
	if e := energy(high); e > 0.1 {
		t.Errorf("stopband energy = %f, want strongly attenuated", e)
	}
}

func TestLowPass_NoOpAtNyquist(t *testing.T) {
	in := []float32{0.1, -0.2, 0.3}
	got := LowPass(in, 16000, 8000)
	for i := range in {
		if got[i] != in[i] {
			t.Fatal("cutoff at Nyquist should be a passthrough")
		}
	}
}

func TestNormalizePeak(t *testing.T) {
	t.Run("scales peak to target", func(t *testing.T) {
		samples := []float32{0.1, -0.4, 0.2}
		NormalizePeak(samples, 0.8)
		var peak float32
		for _, s := range samples {
			if a := abs32(s); a > peak {
				peak = a
			}
		}
		if peak < 0.799 || peak > 0.801 {
			t.Errorf("peak after normalize = %f, want 0.8", peak)
		}
	})

	t.Run("silence is untouched", func(t *testing.T) {
		samples := []float32{0, 1e-6, -1e-6}
		NormalizePeak(samples, 0.8)
		for _, s := range samples {
			if a := abs32(s); a > 1e-5 {
				t.Errorf("silent chunk was scaled: sample %f", s)
			}
		}
	})
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %f, want 0", got)
	}
	if got := RMS([]float32{0.5, -0.5, 0.5, -0.5}); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("RMS = %f, want 0.5", got)
	}
}

func TestChunk_Duration(t *testing.T) {
	c := Chunk{Samples: make([]float32, 32000), SampleRate: 16000}
	if got := c.Duration().Seconds(); got != 2 {
		t.Errorf("Duration = %fs, want 2s", got)
	}
}
