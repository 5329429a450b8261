// SPDX-License-Identifier: MIT
package source

import (
	"math"
	"math/rand"
)

// Tone shape of the fallback signal: a 440 Hz fundamental with 2nd and 3rd
// harmonics, a sub-bass component, and a little uniform noise so the treble
// bins see content too.
const (
	toneFrequency = 440.0

	fundamentalGain = 0.3
	secondGain      = 0.2
	thirdGain       = 0.1
	subBassGain     = 0.05
	noiseGain       = 0.02
)

// Synthetic generates the fallback test tone from a phase accumulator, so
// the analysis pipeline always has exercisable input with no hardware.
// Not safe for concurrent use; the analysis loop is its only caller.
type Synthetic struct {
	sampleRate float64
	maxFrames  int // per-call frame cap, the configured base buffer size
	phase      float64
	rng        *rand.Rand
}

// NewSynthetic returns a stereo tone generator at the given sample rate.
// baseFrames caps the frames produced per call.
func NewSynthetic(sampleRate float64, baseFrames int) *Synthetic {
	return &Synthetic{
		sampleRate: sampleRate,
		maxFrames:  baseFrames,
		rng:        rand.New(rand.NewSource(1)), // fixed seed: repeatable noise floor
	}
}

// Pull synthesizes up to maxFrames stereo frames into out and returns the
// count produced. The phase accumulator advances monotonically and wraps
// modulo 2π.
func (s *Synthetic) Pull(out []float32, maxFrames int) int {
	frames := maxFrames
	if frames > s.maxFrames {
		frames = s.maxFrames
	}
	if frames*2 > len(out) {
		frames = len(out) / 2
	}

	step := 2 * math.Pi * toneFrequency / s.sampleRate
	for i := 0; i < frames; i++ {
		sample := fundamentalGain * math.Sin(s.phase)
		sample += secondGain * math.Sin(s.phase*2)
		sample += thirdGain * math.Sin(s.phase*3)
		sample += subBassGain * math.Sin(s.phase*0.5)
		sample += noiseGain * (s.rng.Float64() - 0.5)

		out[i*2] = float32(sample)
		out[i*2+1] = float32(sample)

		s.phase += step
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
	return frames
}

var _ FrameSource = (*Synthetic)(nil)
