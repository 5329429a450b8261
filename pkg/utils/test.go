// SPDX-License-Identifier: MIT
// Package utils holds shared test helpers: interleaved signal generators
// and spectrum inspection.
package utils

import "math"

// GenerateSineFrames returns frames interleaved stereo frames of a pure
// sine at the given frequency and sample rate, identical on both channels.
func GenerateSineFrames(frames int, sampleRate, frequency float64) []float32 {
	buf := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		t := float64(i) / sampleRate
		s := float32(math.Sin(2 * math.Pi * frequency * t))
		buf[i*2] = s
		buf[i*2+1] = s
	}
	return buf
}

// GenerateComplexFrames returns a 440 Hz fundamental plus harmonics,
// interleaved stereo.
func GenerateComplexFrames(frames int, sampleRate float64) []float32 {
	buf := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		t := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
		buf[i*2] = float32(signal)
		buf[i*2+1] = float32(signal)
	}
	return buf
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin..endBin], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
