// SPDX-License-Identifier: MIT
package analysis

const (
	// historySize is the rolling window of recent volume values the
	// dynamic threshold averages over.
	historySize = 8

	// thresholdGain scales the rolling average into the beat threshold.
	thresholdGain = 1.5

	// silenceFloor is the absolute volume below which no beat fires, so
	// near-silence cannot trip the relative threshold.
	silenceFloor = 0.3
)

// BeatDetector fires when the current volume stands out against a rolling
// average of recent volume. One instance lives for an analysis session;
// it is owned by the caller, not shared process-wide, and Reset gives
// tests and multi-session use a clean history.
//
// Not safe for concurrent use.
type BeatDetector struct {
	history [historySize]float64
	index   int
}

// NewBeatDetector returns a detector with an all-silent history.
func NewBeatDetector() *BeatDetector {
	return &BeatDetector{}
}

// Detect inserts volume into the rolling history, then reports whether a
// beat fired and its intensity in [0,1].
//
// The threshold is 1.5× the history mean (current value included). A beat
// fires when volume exceeds both the threshold and the absolute floor.
func (d *BeatDetector) Detect(volume float64) (beat bool, intensity float64) {
	d.history[d.index] = volume
	d.index = (d.index + 1) % historySize

	var avg float64
	for _, v := range d.history {
		avg += v
	}
	avg /= historySize

	threshold := avg * thresholdGain
	if volume <= threshold || volume <= silenceFloor {
		return false, 0
	}

	// As threshold approaches 1 the scaling denominator vanishes; treat
	// anything at or past it as full intensity.
	if threshold >= 1 {
		return true, 1
	}
	intensity = (volume - threshold) / (1 - threshold)
	if intensity > 1 {
		intensity = 1
	}
	return true, intensity
}

// Reset clears the rolling history and cursor.
func (d *BeatDetector) Reset() {
	d.history = [historySize]float64{}
	d.index = 0
}
