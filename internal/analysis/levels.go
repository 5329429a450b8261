// SPDX-License-Identifier: MIT
package analysis

import "math"

// MinBins is the smallest spectrum size for which every band range has
// non-zero width. Validate configured bin counts against this before the
// pipeline starts.
const MinBins = 8

// bassBoost compensates the naturally lower energy of the bass range.
const bassBoost = 2.0

// Levels are the four scalars derived from one spectrum snapshot, each in
// [0,1]. No temporal memory: one spectrum in, one Levels out.
type Levels struct {
	Bass   float64 `json:"bass"`
	Mid    float64 `json:"mid"`
	Treble float64 `json:"treble"`
	Volume float64 `json:"volume"`
}

// ExtractLevels reduces a spectrum into band levels. Bins partition into
// bass [0,B/8), mid [B/8,B/2), treble [B/2,B); volume averages the whole
// spectrum. A spectrum shorter than MinBins yields zero Levels instead of
// dividing by a zero-width range.
func ExtractLevels(spectrum []float64) Levels {
	n := len(spectrum)
	if n < MinBins {
		return Levels{}
	}

	bassEnd := n / 8
	midEnd := n / 2

	var lv Levels
	for i, v := range spectrum {
		lv.Volume += v
		switch {
		case i < bassEnd:
			lv.Bass += v
		case i < midEnd:
			lv.Mid += v
		default:
			lv.Treble += v
		}
	}

	lv.Bass /= float64(bassEnd)
	lv.Mid /= float64(midEnd - bassEnd)
	lv.Treble /= float64(n - midEnd)
	lv.Volume /= float64(n)

	lv.Bass *= bassBoost

	// Magnitudes are non-negative, so only the upper bound needs clamping.
	lv.Bass = math.Min(1, lv.Bass)
	lv.Mid = math.Min(1, lv.Mid)
	lv.Treble = math.Min(1, lv.Treble)
	lv.Volume = math.Min(1, lv.Volume)
	return lv
}
