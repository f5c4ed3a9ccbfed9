package audioconv

import (
	"math"
	"testing"
)

func sine(freq float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(TargetSampleRate)))
	}
	return out
}

func TestWAVRoundTrip(t *testing.T) {
	in := sine(440, TargetSampleRate/10)

	blob, err := EncodeWAV(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(blob[:4]) != "RIFF" {
		t.Fatalf("expected RIFF header, got %q", blob[:4])
	}

	out, err := ConvertToPCM16k(blob, Options{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if d := math.Abs(float64(in[i] - out[i])); d > 1.0/32000 {
			t.Fatalf("sample %d drifted by %v", i, d)
		}
	}
}

func TestConvertRejectsGarbage(t *testing.T) {
	if _, err := ConvertToPCM16k([]byte("not audio at all"), Options{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := ConvertToPCM16k([]byte{1}, Options{}); err == nil {
		t.Fatal("expected error for short blob")
	}
}

func TestMaxSamplesCap(t *testing.T) {
	blob, err := EncodeWAV(sine(440, TargetSampleRate))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := ConvertToPCM16k(blob, Options{MaxSamples: 100})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 100 {
		t.Fatalf("expected capped length 100, got %d", len(out))
	}
}

func TestFloat32ToInt16Clamps(t *testing.T) {
	out := Float32ToInt16([]float32{-2, -1, 0, 1, 2})
	if out[0] != -32767 || out[4] != 32767 {
		t.Fatalf("out-of-range samples must clamp, got %v", out)
	}
	if out[2] != 0 {
		t.Fatalf("zero must stay zero, got %d", out[2])
	}
}

func TestDownmixStereo(t *testing.T) {
	in := []float32{1, 0, 0.5, 0.5, -1, 1}
	out := downmixInterleaved(in, 2)
	want := []float32{0.5, 0.5, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("frame %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestResampleHalvesRate(t *testing.T) {
	in := sine(100, 32000)
	out := resampleLinear(in, 32000, 16000)
	if len(out) != 16000 {
		t.Fatalf("expected 16000 samples, got %d", len(out))
	}
}
