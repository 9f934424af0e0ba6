package audio

import "math"

// DownmixMono averages interleaved multi-channel samples into mono.
// If channels is 1 the input is returned unchanged (zero allocation).
func DownmixMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			sum += samples[i*channels+ch]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Resample converts mono samples from srcRate to dstRate using linear
// interpolation. If the rates match, the input is returned unchanged.
//
// Callers resampling downwards should apply [LowPass] first to suppress
// aliasing; Resample itself performs no filtering.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) < 2 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstLen {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		s0 := samples[idx]
		s1 := s0
		if idx+1 < len(samples) {
			s1 = samples[idx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}

// LowPass applies a second-order Butterworth low-pass filter with the given
// cutoff frequency, returning a new slice. Used as the anti-aliasing step
// before downsampling: the capture source sets cutoff to 0.8 × the smaller
// Nyquist frequency of the two rates involved.
//
// A cutoff at or above Nyquist (or a non-positive cutoff) is a no-op.
func LowPass(samples []float32, sampleRate int, cutoff float64) []float32 {
	nyquist := float64(sampleRate) / 2
	if cutoff <= 0 || cutoff >= nyquist || len(samples) == 0 {
		return samples
	}

	// RBJ biquad coefficients, Q = 1/sqrt(2) for a maximally flat response.
	omega := 2 * math.Pi * cutoff / float64(sampleRate)
	sin, cos := math.Sin(omega), math.Cos(omega)
	alpha := sin / math.Sqrt2 // sin / (2Q) with Q = sqrt(2)/2

	b0 := (1 - cos) / 2
	b1 := 1 - cos
	b2 := (1 - cos) / 2
	a0 := 1 + alpha
	a1 := -2 * cos
	a2 := 1 - alpha

	b0, b1, b2 = b0/a0, b1/a0, b2/a0
	a1, a2 = a1/a0, a2/a0

	out := make([]float32, len(samples))
	var x1, x2, y1, y2 float64
	for i, s := range samples {
		x0 := float64(s)
		y0 := b0*x0 + b1*x1 + b2*x2 - a1*y1 - a2*y2
		out[i] = float32(y0)
		x2, x1 = x1, x0
		y2, y1 = y1, y0
	}
	return out
}

// silenceFloor is the peak amplitude below which a chunk is considered
// entirely silent and left unscaled by NormalizePeak.
const silenceFloor = 1e-4

// NormalizePeak scales samples in place so the peak absolute amplitude equals
// target (e.g. 0.8 for headroom against clipping). Silent input — peak below
// the silence floor — is returned unchanged so noise is not amplified into
// phantom speech.
func NormalizePeak(samples []float32, target float32) []float32 {
	var peak float32
	for _, s := range samples {
		if a := abs32(s); a > peak {
			peak = a
		}
	}
	if peak < silenceFloor {
		return samples
	}
	scale := target / peak
	for i := range samples {
		samples[i] *= scale
	}
	return samples
}

// RMS returns the root-mean-square energy of the samples. Used by the
// transcription stage's energy gate to skip recognition on silent chunks.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
