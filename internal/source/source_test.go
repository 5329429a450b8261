// SPDX-License-Identifier: MIT
package source

import (
	"testing"

	"pulseviz/internal/buffer"
)

func TestLivePullDelegatesToRing(t *testing.T) {
	ring, err := buffer.New(64, 2)
	if err != nil {
		t.Fatal(err)
	}
	ring.Write([]float32{1, 2, 3, 4, 5, 6}) // 3 frames

	src := NewLive(ring)
	out := make([]float32, 16)
	if got := src.Pull(out, 8); got != 3 {
		t.Fatalf("Pull returned %d frames, want 3", got)
	}
	want := []float32{1, 2, 3, 4, 5, 6, 0, 0}
	for i, v := range want {
		if out[i] != v {
			t.Errorf("out[%d] = %v, want %v", i, out[i], v)
		}
	}
}

func TestLivePullEmptyRing(t *testing.T) {
	ring, err := buffer.New(64, 2)
	if err != nil {
		t.Fatal(err)
	}
	src := NewLive(ring)

	out := make([]float32, 200)
	if got := src.Pull(out, 100); got != 0 {
		t.Errorf("Pull on empty ring returned %d frames, want 0", got)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want silence", i, v)
		}
	}
}

func TestSyntheticFrameCap(t *testing.T) {
	const base = 32
	src := NewSynthetic(48000, base)

	tests := []struct {
		name      string
		maxFrames int
		want      int
	}{
		{"Below cap", 16, 16},
		{"At cap", base, base},
		{"Above cap", base * 4, base},
	}

	out := make([]float32, base*8*2)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := src.Pull(out, tt.maxFrames); got != tt.want {
				t.Errorf("Pull(%d) = %d frames, want %d", tt.maxFrames, got, tt.want)
			}
		})
	}
}

func TestSyntheticProducesSignal(t *testing.T) {
	src := NewSynthetic(48000, 256)
	out := make([]float32, 512)
	n := src.Pull(out, 256)
	if n != 256 {
		t.Fatalf("Pull returned %d frames, want 256", n)
	}

	var peak float32
	for _, v := range out {
		if v > peak {
			peak = v
		}
	}
	if peak < 0.1 {
		t.Errorf("synthetic tone peak %v, expected audible amplitude", peak)
	}

	// Stereo: both channels carry the same tone.
	for i := 0; i < n; i++ {
		if out[i*2] != out[i*2+1] {
			t.Fatalf("frame %d channels differ: %v vs %v", i, out[i*2], out[i*2+1])
		}
	}
}

func TestSyntheticPhaseAdvances(t *testing.T) {
	src := NewSynthetic(48000, 64)
	a := make([]float32, 128)
	b := make([]float32, 128)
	src.Pull(a, 64)
	src.Pull(b, 64)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("consecutive pulls returned identical windows; phase accumulator is stuck")
	}
}
