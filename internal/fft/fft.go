// SPDX-License-Identifier: MIT
/*
Package fft computes a Hann-windowed FFT magnitude spectrum from the same
frame windows the direct estimator consumes. Network clients get this
high-resolution view; the renderer-facing band/beat logic stays on the
direct projection it was tuned against.
*/
package fft

import (
	"fmt"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"pulseviz/pkg/bitint"
)

// Processor performs FFT analysis over the left channel of interleaved
// stereo windows. All buffers are pre-allocated; Process does not allocate.
//
// Thread Safety: an RWMutex guards the workspace so transports can read
// magnitudes while the analysis loop writes the next frame.
type Processor struct {
	fftSize    int
	sampleRate float64
	calc       *fourier.FFT

	mu        sync.RWMutex
	input     []float64
	output    []complex128
	magnitude []float64
	window    []float64
}

// NewProcessor creates a processor for power-of-2 fftSize windows.
func NewProcessor(fftSize int, sampleRate float64) (*Processor, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	// Hann coefficients: window a vector of ones once, reuse per frame.
	coeffs := make([]float64, fftSize)
	for i := range coeffs {
		coeffs[i] = 1
	}
	window.Hann(coeffs)

	bins := fftSize/2 + 1
	return &Processor{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		calc:       fourier.NewFFT(fftSize),
		input:      make([]float64, fftSize),
		output:     make([]complex128, bins),
		magnitude:  make([]float64, bins),
		window:     coeffs,
	}, nil
}

// Process windows the left channel of frames (frameCount valid frames,
// zero-padded to fftSize), runs the FFT, and stores the magnitudes.
func (p *Processor) Process(frames []float32, frameCount int) {
	if frameCount > len(frames)/2 {
		frameCount = len(frames) / 2
	}

	p.mu.Lock()
	for i := 0; i < p.fftSize; i++ {
		if i < frameCount {
			p.input[i] = float64(frames[i*2]) * p.window[i]
		} else {
			p.input[i] = 0
		}
	}

	p.calc.Coefficients(p.output, p.input)
	for i, c := range p.output {
		p.magnitude[i] = cmplx.Abs(c)
	}
	p.mu.Unlock()
}

// Magnitudes returns a copy of the latest magnitude spectrum. Allocates;
// use MagnitudesInto from per-tick paths.
func (p *Processor) Magnitudes() []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]float64, len(p.magnitude))
	copy(out, p.magnitude)
	return out
}

// MagnitudesInto copies the latest magnitudes into dst, which must be
// exactly Bins() long.
func (p *Processor) MagnitudesInto(dst []float64) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(dst) != len(p.magnitude) {
		return fmt.Errorf("destination length %d does not match bin count %d", len(dst), len(p.magnitude))
	}
	copy(dst, p.magnitude)
	return nil
}

// Bins returns the number of magnitude values per spectrum (fftSize/2+1).
func (p *Processor) Bins() int {
	return len(p.magnitude)
}

// BinFrequency returns the center frequency (Hz) of bin i.
func (p *Processor) BinFrequency(i int) float64 {
	if i < 0 || i >= len(p.magnitude) {
		return 0
	}
	return float64(i) * p.sampleRate / float64(p.fftSize)
}

// SampleRate returns the configured sample rate.
func (p *Processor) SampleRate() float64 {
	return p.sampleRate
}
