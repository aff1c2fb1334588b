package pcm

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestFloatToInt16ClampsAndScales(t *testing.T) {
	t.Parallel()

	got := FloatToInt16([]float32{-2, -1, -0.5, 0, 0.5, 1, 3})
	want := []int16{-32767, -32767, -16384, 0, 16384, 32767, 32767}
	if len(got) != len(want) {
		t.Fatalf("unexpected length: %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestFloatToInt16NaNIsSilence(t *testing.T) {
	t.Parallel()

	got := FloatToInt16([]float32{float32(math.NaN())})
	if got[0] != 0 {
		t.Fatalf("expected silence for NaN, got %d", got[0])
	}
}

func TestFloatToInt16MonotonicInRange(t *testing.T) {
	t.Parallel()

	var inputs []float32
	for v := -1.0; v <= 1.0; v += 0.0005 {
		inputs = append(inputs, float32(v))
	}
	out := FloatToInt16(inputs)
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Fatalf("not monotonic at %d: %d < %d", i, out[i], out[i-1])
		}
	}
	for i, v := range out {
		if v < -32768 || v > 32767 {
			t.Fatalf("sample %d out of range: %d", i, v)
		}
	}
}

func TestResampleSameRateReturnsInput(t *testing.T) {
	t.Parallel()

	in := []int16{1, 2, 3}
	for _, rate := range []int{8000, 16000, 24000, 48000} {
		out := Resample(in, rate, rate)
		if &out[0] != &in[0] || len(out) != len(in) {
			t.Fatalf("expected input slice back for rate %d", rate)
		}
	}
}

func TestResampleOutputLength(t *testing.T) {
	t.Parallel()

	rates := []int{8000, 11025, 16000, 22050, 24000, 44100, 48000}
	for _, n := range []int{0, 1, 7, 4096} {
		in := make([]int16, n)
		for _, src := range rates {
			for _, dst := range rates {
				want := int(math.Round(float64(n) * float64(dst) / float64(src)))
				if got := len(Resample(in, src, dst)); got != want {
					t.Fatalf("len %d %d->%d: got %d want %d", n, src, dst, got, want)
				}
			}
		}
	}
}

func TestResampleInterpolatesAndClampsTail(t *testing.T) {
	t.Parallel()

	up := Resample([]int16{0, 100, 200}, 1, 2)
	want := []int16{0, 50, 100, 150, 200, 200}
	if len(up) != len(want) {
		t.Fatalf("unexpected length: %v", up)
	}
	for i := range want {
		if up[i] != want[i] {
			t.Fatalf("upsample %d: got %d want %d (%v)", i, up[i], want[i], up)
		}
	}

	down := Resample([]int16{0, 10, 20, 30}, 48000, 24000)
	if len(down) != 2 || down[0] != 0 || down[1] != 20 {
		t.Fatalf("unexpected downsample: %v", down)
	}
}

func TestDecodeFloat32LE(t *testing.T) {
	t.Parallel()

	raw := make([]byte, 9)
	binary.LittleEndian.PutUint32(raw[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(raw[4:], math.Float32bits(-1))
	got := DecodeFloat32LE(raw)
	if len(got) != 2 || got[0] != 0.25 || got[1] != -1 {
		t.Fatalf("unexpected samples: %v", got)
	}
}
