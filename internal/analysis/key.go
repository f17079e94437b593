package analysis

import (
	"math"

	"github.com/etude-works/etude-api/internal/models"
)

// Krumhansl-Schmuckler key profiles: perceived stability of each pitch class
// relative to the tonic, from the probe-tone experiments.
var majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
var minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func pitchClassHistogram(notes []models.NoteEvent) [12]float64 {
	var h [12]float64
	for _, n := range notes {
		for _, p := range n.Pitches {
			h[p%12]++
		}
	}
	return h
}

// EstimateKey correlates a pitch-class histogram against all 24 candidate
// keys (12 roots, major and minor profile each) and picks the best match.
// Confidence is the correlation margin over the runner-up, scaled so a 0.25
// lead saturates at 1. An empty histogram estimates "unknown".
func EstimateKey(histogram [12]float64) KeyEstimate {
	var mass float64
	for _, v := range histogram {
		mass += v
	}
	if mass == 0 {
		return KeyEstimate{Name: "unknown", Confidence: 0}
	}

	modes := []struct {
		name    string
		profile [12]float64
	}{
		{"major", majorProfile},
		{"minor", minorProfile},
	}

	best, second := math.Inf(-1), math.Inf(-1)
	bestName := "unknown"
	for root := 0; root < 12; root++ {
		for _, mode := range modes {
			var rotated [12]float64
			for i := range rotated {
				rotated[i] = mode.profile[((i-root)%12+12)%12]
			}
			r := pearson(histogram[:], rotated[:])
			if r > best {
				second = best
				best = r
				bestName = pitchClassNames[root] + " " + mode.name
			} else if r > second {
				second = r
			}
		}
	}

	confidence := (best - second) / 0.25
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return KeyEstimate{Name: bestName, Confidence: confidence}
}

func pearson(x, y []float64) float64 {
	n := float64(len(x))
	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range x {
		dx, dy := x[i]-meanX, y[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
