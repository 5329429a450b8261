// SPDX-License-Identifier: MIT
package buffer

import (
	"sync"
	"testing"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name     string
		frames   int
		channels int
		wantErr  bool
	}{
		{"Valid stereo", 1024, 2, false},
		{"Valid mono", 64, 1, false},
		{"Zero frames", 0, 2, true},
		{"Negative frames", -8, 2, true},
		{"Zero channels", 1024, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.frames, tt.channels)
			if tt.wantErr {
				if err == nil {
					t.Errorf("New(%d, %d) expected error, got nil", tt.frames, tt.channels)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%d, %d) unexpected error: %v", tt.frames, tt.channels, err)
			}
			if got := r.CapacityFrames(); got != tt.frames {
				t.Errorf("CapacityFrames() = %d, want %d", got, tt.frames)
			}
		})
	}
}

func TestCapacityInvariant(t *testing.T) {
	const capacity = 16
	r, err := New(capacity, 2)
	if err != nil {
		t.Fatal(err)
	}

	chunk := make([]float32, 6) // 3 frames per write
	for i := 0; i < 50; i++ {
		r.Write(chunk)
		if avail := r.AvailableFrames(); avail > capacity {
			t.Fatalf("after write %d: available %d frames exceeds capacity %d", i, avail, capacity)
		}
	}
}

func TestReadNeverExceedsWritten(t *testing.T) {
	r, err := New(64, 2)
	if err != nil {
		t.Fatal(err)
	}

	r.Write(make([]float32, 10)) // 5 frames
	out := make([]float32, 200)
	if got := r.Read(out, 100); got != 5 {
		t.Errorf("Read returned %d frames, want 5", got)
	}
	// A second read finds nothing.
	if got := r.Read(out, 100); got != 0 {
		t.Errorf("Read after drain returned %d frames, want 0", got)
	}
}

func TestOverflowKeepsNewest(t *testing.T) {
	const capacity = 8
	r, err := New(capacity, 2)
	if err != nil {
		t.Fatal(err)
	}

	// Ramp signal of capacity+4 frames: sample value == scalar index.
	const extraFrames = 4
	ramp := make([]float32, (capacity+extraFrames)*2)
	for i := range ramp {
		ramp[i] = float32(i)
	}
	r.Write(ramp)

	if avail := r.AvailableFrames(); avail != capacity {
		t.Fatalf("available = %d frames, want %d", avail, capacity)
	}

	out := make([]float32, capacity*2)
	got := r.Read(out, capacity)
	if got != capacity {
		t.Fatalf("Read returned %d frames, want %d", got, capacity)
	}

	// The oldest extraFrames frames were discarded, so the first readable
	// scalar is the ramp value at the discard offset.
	wantFirst := float32(extraFrames * 2)
	if out[0] != wantFirst {
		t.Errorf("first readable sample = %v, want %v", out[0], wantFirst)
	}
	for i, v := range out {
		if v != wantFirst+float32(i) {
			t.Errorf("out[%d] = %v, want %v", i, v, wantFirst+float32(i))
			break
		}
	}
}

func TestOverflowAcrossCalls(t *testing.T) {
	const capacity = 4
	r, err := New(capacity, 1)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 7; i++ {
		r.Write([]float32{float32(i)})
	}

	out := make([]float32, capacity)
	if got := r.Read(out, capacity); got != capacity {
		t.Fatalf("Read returned %d frames, want %d", got, capacity)
	}
	for i, want := range []float32{3, 4, 5, 6} {
		if out[i] != want {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
}

func TestUnderrunPadsWithSilence(t *testing.T) {
	r, err := New(1024, 2)
	if err != nil {
		t.Fatal(err)
	}

	out := make([]float32, 200)
	for i := range out {
		out[i] = 99 // poison to catch missing padding
	}

	if got := r.Read(out, 100); got != 0 {
		t.Fatalf("Read on empty ring returned %d frames, want 0", got)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want exact zero padding", i, v)
		}
	}
}

func TestPartialReadPadsRemainder(t *testing.T) {
	r, err := New(64, 2)
	if err != nil {
		t.Fatal(err)
	}

	r.Write([]float32{1, 2, 3, 4}) // 2 frames
	out := make([]float32, 10)
	for i := range out {
		out[i] = 99
	}

	if got := r.Read(out, 5); got != 2 {
		t.Fatalf("Read returned %d frames, want 2", got)
	}
	want := []float32{1, 2, 3, 4, 0, 0, 0, 0, 0, 0}
	for i, v := range out {
		if v != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestOddScalarWrite(t *testing.T) {
	// Writes are raw scalar counts; a trailing half frame stays buffered
	// until its partner arrives.
	r, err := New(8, 2)
	if err != nil {
		t.Fatal(err)
	}

	r.Write([]float32{1, 2, 3})
	if avail := r.AvailableFrames(); avail != 1 {
		t.Fatalf("available = %d frames after 3 scalars, want 1", avail)
	}
	r.Write([]float32{4})
	if avail := r.AvailableFrames(); avail != 2 {
		t.Fatalf("available = %d frames after 4 scalars, want 2", avail)
	}
}

// TestWriteHotPath verifies the producer-side copy stays allocation free.
func TestWriteHotPath(t *testing.T) {
	r, err := New(1024, 2)
	if err != nil {
		t.Fatal(err)
	}
	chunk := make([]float32, 256)

	allocs := testing.AllocsPerRun(100, func() {
		r.Write(chunk)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Write hot path, got %.1f", allocs)
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	r, err := New(256, 2)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		chunk := make([]float32, 64)
		for i := 0; i < 2000; i++ {
			r.Write(chunk)
		}
		close(done)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		out := make([]float32, 128)
		for {
			n := r.Read(out, 64)
			if n > r.CapacityFrames() {
				t.Errorf("Read returned %d frames, above capacity %d", n, r.CapacityFrames())
				return
			}
			select {
			case <-done:
				return
			default:
			}
		}
	}()

	wg.Wait()
}

func BenchmarkWrite(b *testing.B) {
	r, _ := New(8192, 2)
	chunk := make([]float32, 1024)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r.Write(chunk)
	}
}

func BenchmarkRead(b *testing.B) {
	r, _ := New(8192, 2)
	chunk := make([]float32, 2048)
	out := make([]float32, 2048)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r.Write(chunk)
		r.Read(out, 1024)
	}
}
