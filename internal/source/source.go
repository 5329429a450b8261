// SPDX-License-Identifier: MIT
/*
Package source supplies interleaved stereo frame windows to the analysis
loop. Two variants implement FrameSource: Live reads from the capture ring
buffer, Synthetic generates a test tone when no capture device is present.
The variant is chosen at construction by capability probing, so the rest of
the pipeline never cares which one is behind the interface.
*/
package source

import "pulseviz/internal/buffer"

// FrameSource pulls up to maxFrames interleaved frames per call.
type FrameSource interface {
	// Pull copies up to maxFrames frames into out and returns the number of
	// frames actually obtained. Anything past the returned count is silence.
	Pull(out []float32, maxFrames int) int
}

// Live delegates to the capture session's ring buffer.
type Live struct {
	ring *buffer.Ring
}

// NewLive wraps a ring buffer fed by an active capture backend.
func NewLive(ring *buffer.Ring) *Live {
	return &Live{ring: ring}
}

// Pull reads whole frames from the ring; underruns come back zero-padded
// with the true frame count reported.
func (s *Live) Pull(out []float32, maxFrames int) int {
	return s.ring.Read(out, maxFrames)
}

var _ FrameSource = (*Live)(nil)
