// Package pcm converts captured float audio into the 16-bit PCM the
// transcription service expects.
package pcm

import (
	"encoding/binary"
	"math"
)

// FloatToInt16 clamps each sample to [-1, 1], scales by 32767 and rounds
// half away from zero.
func FloatToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s)
		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		case math.IsNaN(v):
			v = 0
		}
		out[i] = int16(math.Round(v * 32767))
	}
	return out
}

// Resample converts samples from srcRate to dstRate with linear
// interpolation. Equal rates return the input slice itself. There is no
// anti-aliasing filter, so downsampling folds content above the new Nyquist
// frequency back into the band.
func Resample(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 {
		return samples
	}

	step := float64(srcRate) / float64(dstRate)
	n := int(math.Round(float64(len(samples)) * float64(dstRate) / float64(srcRate)))
	out := make([]int16, n)
	if len(samples) == 0 {
		return out
	}

	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		idx := int(math.Floor(pos))
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		v := float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac
		out[i] = int16(math.Round(v))
	}
	return out
}

// DecodeFloat32LE reads little-endian IEEE float32 samples. A trailing
// partial sample is ignored.
func DecodeFloat32LE(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}
