// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"pulseviz/pkg/utils"
)

const testSampleRate = 48000.0

func TestNewEstimatorValidation(t *testing.T) {
	if _, err := NewEstimator(0); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := NewEstimator(-48000); err == nil {
		t.Error("expected error for negative sample rate")
	}
	if _, err := NewEstimator(testSampleRate); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBinFrequencyMapping(t *testing.T) {
	e, err := NewEstimator(testSampleRate)
	if err != nil {
		t.Fatal(err)
	}

	const bins = 64
	nyquist := testSampleRate / 2
	for b := 0; b < bins; b++ {
		want := float64(b) / bins * nyquist
		got := e.BinFrequency(b, bins)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("BinFrequency(%d, %d) = %f, want %f", b, bins, got, want)
		}
	}

	// Out-of-range bins map to 0.
	if got := e.BinFrequency(-1, bins); got != 0 {
		t.Errorf("BinFrequency(-1) = %f, want 0", got)
	}
	if got := e.BinFrequency(bins, bins); got != 0 {
		t.Errorf("BinFrequency(bins) = %f, want 0", got)
	}
}

func TestAnalyzeSineDominantBin(t *testing.T) {
	e, err := NewEstimator(testSampleRate)
	if err != nil {
		t.Fatal(err)
	}

	const (
		bins      = 64
		frames    = 1024
		frequency = 440.0
	)
	window := utils.GenerateSineFrames(frames, testSampleRate, frequency)
	spectrum := make([]float64, bins)
	e.AnalyzeInto(spectrum, window, frames)

	// The bin nearest 440 Hz (bin 1 at this resolution: 375 Hz) should
	// dominate the spectrum.
	binWidth := (testSampleRate / 2) / bins
	toneBin := int(frequency/binWidth + 0.5)

	peak := utils.FindPeakBin(spectrum, 1, bins-1)
	if peak != toneBin {
		t.Errorf("peak bin %d, want %d", peak, toneBin)
	}

	// Materially higher than DC and near-Nyquist content.
	if spectrum[toneBin] < 2*spectrum[0] {
		t.Errorf("tone bin %f not materially above DC bin %f", spectrum[toneBin], spectrum[0])
	}
	if spectrum[toneBin] < 3*spectrum[bins-1] {
		t.Errorf("tone bin %f not materially above Nyquist bin %f", spectrum[toneBin], spectrum[bins-1])
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	e, err := NewEstimator(testSampleRate)
	if err != nil {
		t.Fatal(err)
	}

	window := utils.GenerateComplexFrames(600, testSampleRate)
	a := make([]float64, 32)
	b := make([]float64, 32)
	e.AnalyzeInto(a, window, 600)
	e.AnalyzeInto(b, window, 600)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bin %d differs between identical calls: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestAnalyzeProjectionCap(t *testing.T) {
	e, err := NewEstimator(testSampleRate)
	if err != nil {
		t.Fatal(err)
	}

	// Two windows identical through the 512-sample cap, wildly different
	// after it. Same frameCount, so identical spectra prove the cap.
	const frames = 2048
	a := utils.GenerateSineFrames(frames, testSampleRate, 440)
	b := make([]float32, len(a))
	copy(b, a)
	for i := maxProjectionSamples * 2; i < len(b); i++ {
		b[i] = 12345
	}

	sa := make([]float64, 32)
	sb := make([]float64, 32)
	e.AnalyzeInto(sa, a, frames)
	e.AnalyzeInto(sb, b, frames)

	for i := range sa {
		if sa[i] != sb[i] {
			t.Fatalf("bin %d affected by samples beyond the projection cap", i)
		}
	}
}

func TestAnalyzeEmptyWindow(t *testing.T) {
	e, err := NewEstimator(testSampleRate)
	if err != nil {
		t.Fatal(err)
	}

	spectrum := make([]float64, 16)
	for i := range spectrum {
		spectrum[i] = 99
	}
	e.AnalyzeInto(spectrum, nil, 0)
	for i, v := range spectrum {
		if v != 0 {
			t.Errorf("bin %d = %v after empty window, want 0", i, v)
		}
	}
}

func TestAnalyzeClampsLoudInput(t *testing.T) {
	e, err := NewEstimator(testSampleRate)
	if err != nil {
		t.Fatal(err)
	}

	// Far outside [-1,1]: log compression alone would exceed 1.
	const frames = 512
	window := make([]float32, frames*2)
	for i := range window {
		window[i] = 100
	}

	spectrum := make([]float64, 16)
	e.AnalyzeInto(spectrum, window, frames)
	for i, v := range spectrum {
		if v < 0 || v > 1 {
			t.Errorf("bin %d = %v outside [0,1]", i, v)
		}
	}
}

// TestAnalyzeHotPath verifies the estimator allocates nothing per call.
func TestAnalyzeHotPath(t *testing.T) {
	e, err := NewEstimator(testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	window := utils.GenerateComplexFrames(1024, testSampleRate)
	spectrum := make([]float64, 64)

	e.AnalyzeInto(spectrum, window, 1024) // warm up
	allocs := testing.AllocsPerRun(20, func() {
		e.AnalyzeInto(spectrum, window, 1024)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in AnalyzeInto, got %.1f", allocs)
	}
}

func BenchmarkAnalyzeInto(b *testing.B) {
	e, _ := NewEstimator(testSampleRate)
	window := utils.GenerateComplexFrames(1024, testSampleRate)
	spectrum := make([]float64, 64)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e.AnalyzeInto(spectrum, window, 1024)
	}
}
