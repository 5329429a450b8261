// SPDX-License-Identifier: MIT
/*
Package buffer implements the bounded sample store that bridges the
real-time capture callback and the analysis loop.

Thread Safety:
- Single writer (capture callback), single reader (analysis loop)
- One mutex guards both cursors, held only for the cursor-relative copy
- The writer never waits on the reader: overflow discards the oldest
  unread samples instead of blocking
*/
package buffer

import (
	"fmt"
	"sync"
)

// Ring is a fixed-capacity circular store of interleaved float32 samples.
// The backing store holds capacityFrames × channels scalar slots. Writes
// operate on raw scalar counts; reads operate on whole frames.
type Ring struct {
	mu       sync.Mutex
	data     []float32
	channels int
	writePos int
	readPos  int
	unread   int // unread scalar count; keeps the full capacity usable after overflow
}

// New allocates a ring holding capacityFrames frames of the given channel
// count. Allocation failure is a construction failure, never a partial ring.
func New(capacityFrames, channels int) (*Ring, error) {
	if capacityFrames <= 0 {
		return nil, fmt.Errorf("ring capacity must be positive, got %d frames", capacityFrames)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("ring channel count must be positive, got %d", channels)
	}
	return &Ring{
		data:     make([]float32, capacityFrames*channels),
		channels: channels,
	}, nil
}

// Write copies up to len(samples) raw scalar samples into the ring,
// advancing the write cursor modulo the store size. When the ring is full
// the read cursor is advanced one slot per colliding sample, so the
// consumer loses its oldest data and the producer never blocks.
//
// Called only from the producer. Performance critical: no allocations,
// no waiting beyond the cursor lock.
func (r *Ring) Write(samples []float32) {
	r.mu.Lock()
	n := len(samples)
	if n > len(r.data) {
		n = len(r.data)
	}
	for i := 0; i < n; i++ {
		r.data[r.writePos] = samples[i]
		r.writePos++
		if r.writePos == len(r.data) {
			r.writePos = 0
		}
		if r.unread == len(r.data) {
			// Full: discard the oldest unread scalar.
			r.readPos++
			if r.readPos == len(r.data) {
				r.readPos = 0
			}
		} else {
			r.unread++
		}
	}
	r.mu.Unlock()
}

// Read copies up to maxFrames whole frames into out and returns the number
// of frames actually obtained. The remainder of the requested window is
// zero-filled, so an underrun reads as silence rather than garbage; callers
// tell true silence from underrun by the returned count.
//
// Called only from the consumer.
func (r *Ring) Read(out []float32, maxFrames int) int {
	if maxFrames*r.channels > len(out) {
		maxFrames = len(out) / r.channels
	}

	r.mu.Lock()
	frames := r.unread / r.channels
	if frames > maxFrames {
		frames = maxFrames
	}
	scalars := frames * r.channels
	for i := 0; i < scalars; i++ {
		out[i] = r.data[r.readPos]
		r.readPos++
		if r.readPos == len(r.data) {
			r.readPos = 0
		}
	}
	r.unread -= scalars
	r.mu.Unlock()

	// Silence padding happens outside the lock; the producer is free to run.
	for i := scalars; i < maxFrames*r.channels; i++ {
		out[i] = 0
	}
	return frames
}

// CapacityFrames returns the fixed frame capacity set at construction.
func (r *Ring) CapacityFrames() int {
	return len(r.data) / r.channels
}

// Channels returns the interleaved channel count.
func (r *Ring) Channels() int {
	return r.channels
}

// AvailableFrames returns the number of whole frames currently unread.
func (r *Ring) AvailableFrames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread / r.channels
}
