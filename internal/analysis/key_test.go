package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/etude-works/etude-api/internal/models"
)

func TestEstimateKeyWhiteKeysCMajor(t *testing.T) {
	var h [12]float64
	h[0] = 10 // C strongest
	h[2] = 6
	h[4] = 7
	h[5] = 5
	h[7] = 8
	h[9] = 4
	h[11] = 3

	got := EstimateKey(h)

	assert.Equal(t, "C major", got.Name)
	assert.Greater(t, got.Confidence, 0.0)
	assert.LessOrEqual(t, got.Confidence, 1.0)
}

func TestEstimateKeyMinor(t *testing.T) {
	// A harmonic minor flavored mass: A strongest, C and E supporting.
	var h [12]float64
	h[9] = 10
	h[0] = 7
	h[4] = 8
	h[2] = 4
	h[5] = 4
	h[7] = 2
	h[11] = 3

	got := EstimateKey(h)

	assert.Equal(t, "A minor", got.Name)
}

func TestEstimateKeyEmptyHistogram(t *testing.T) {
	got := EstimateKey([12]float64{})

	assert.Equal(t, "unknown", got.Name)
	assert.Zero(t, got.Confidence)
}

func TestEstimateKeyTransposedRoot(t *testing.T) {
	// The C-major weighting shifted up seven semitones should read as G.
	base := map[int]float64{0: 10, 2: 6, 4: 7, 5: 5, 7: 8, 9: 4, 11: 3}
	var h [12]float64
	for class, weight := range base {
		h[(class+7)%12] = weight
	}

	got := EstimateKey(h)

	assert.Equal(t, "G major", got.Name)
}

func TestPitchClassHistogramCountsChordPitches(t *testing.T) {
	notes := []models.NoteEvent{
		{Start: 0, Duration: 1, Pitches: []int{60, 64, 67}, Velocity: 80},
		{Start: 1, Duration: 1, Pitches: []int{72}, Velocity: 80},
	}

	h := pitchClassHistogram(notes)

	assert.Equal(t, 2.0, h[0]) // C4 and C5
	assert.Equal(t, 1.0, h[4])
	assert.Equal(t, 1.0, h[7])
}

func TestPearsonDegenerateInput(t *testing.T) {
	flat := []float64{1, 1, 1, 1}
	rising := []float64{1, 2, 3, 4}

	assert.Zero(t, pearson(flat, rising))
	assert.InDelta(t, 1.0, pearson(rising, rising), 1e-9)
}
