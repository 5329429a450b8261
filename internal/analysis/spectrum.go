// SPDX-License-Identifier: MIT
/*
Package analysis derives renderer-facing features from raw frame windows:
a fixed-size magnitude spectrum, four band levels, and beat events.

The spectrum estimator is a direct per-bin frequency projection, not an
FFT. The band and beat tuning downstream depends on its exact bin mapping,
sample cap, and compression curve, so those are normative here.
*/
package analysis

import (
	"fmt"
	"math"
)

// maxProjectionSamples caps the samples correlated per bin. This bounds
// worst-case cost for any caller window size and is part of the output
// shape contract, not just an optimization.
const maxProjectionSamples = 512

// Estimator converts interleaved stereo frame windows into magnitude
// spectra. Stateless between calls: identical input yields identical
// output. Cost is O(binCount × min(frameCount, 512)).
type Estimator struct {
	sampleRate float64
}

// NewEstimator returns an estimator for the given capture sample rate.
func NewEstimator(sampleRate float64) (*Estimator, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	return &Estimator{sampleRate: sampleRate}, nil
}

// AnalyzeInto fills spectrum with one magnitude per bin, len(spectrum)
// bins total. frames is an interleaved stereo window of which frameCount
// frames are valid; the left channel is projected. Each magnitude is
// log-compressed and clamped to [0,1].
//
// frameCount <= 0 yields an all-zero spectrum.
func (e *Estimator) AnalyzeInto(spectrum []float64, frames []float32, frameCount int) {
	binCount := len(spectrum)
	if binCount == 0 {
		return
	}
	if frameCount > len(frames)/2 {
		frameCount = len(frames) / 2
	}
	if frameCount <= 0 {
		for i := range spectrum {
			spectrum[i] = 0
		}
		return
	}

	limit := frameCount
	if limit > maxProjectionSamples {
		limit = maxProjectionSamples
	}

	nyquist := e.sampleRate / 2
	logDenom := math.Log(11.0)

	for bin := 0; bin < binCount; bin++ {
		freq := float64(bin) / float64(binCount) * nyquist
		omega := 2 * math.Pi * freq / e.sampleRate

		var re, im float64
		for i := 0; i < limit; i++ {
			angle := omega * float64(i)
			s := float64(frames[i*2])
			re += s * math.Cos(angle)
			im += s * math.Sin(angle)
		}

		mag := math.Sqrt(re*re+im*im) / float64(frameCount)

		// Log compression pulls quiet content up. The compressed value can
		// still top 1 for very loud input, so clamp explicitly rather than
		// hand that ambiguity to every consumer.
		mag = math.Log(1+mag*10) / logDenom
		if mag > 1 {
			mag = 1
		}
		spectrum[bin] = mag
	}
}

// BinFrequency returns the frequency (Hz) associated with bin b of a
// binCount-sized spectrum: b/binCount × sampleRate/2.
func (e *Estimator) BinFrequency(bin, binCount int) float64 {
	if binCount <= 0 || bin < 0 || bin >= binCount {
		return 0
	}
	return float64(bin) / float64(binCount) * (e.sampleRate / 2)
}

// SampleRate returns the configured sample rate. Immutable after creation.
func (e *Estimator) SampleRate() float64 {
	return e.sampleRate
}
