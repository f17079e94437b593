package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etude-works/etude-api/internal/models"
)

type motifBuilder struct {
	notes []models.NoteEvent
	pos   float64
}

func (b *motifBuilder) add(pitch int, dur float64) {
	b.notes = append(b.notes, note(b.pos, dur, pitch))
	b.pos += dur
}

// figure plays the four-note shape under test: up a tone, up a tone, back to
// the root with a doubled final duration.
func (b *motifBuilder) figure() {
	b.add(60, 0.5)
	b.add(62, 0.5)
	b.add(64, 0.5)
	b.add(60, 1.0)
}

func (b *motifBuilder) filler(pitches ...int) {
	for _, p := range pitches {
		b.add(p, 0.25)
	}
}

func findMotif(motifs []Motif, intervals []int, rhythm []float64) *Motif {
	for i := range motifs {
		if assert.ObjectsAreEqual(intervals, motifs[i].Intervals) &&
			assert.ObjectsAreEqual(rhythm, motifs[i].Rhythm) {
			return &motifs[i]
		}
	}
	return nil
}

func TestDetectMotifsThreeOccurrencesQualify(t *testing.T) {
	b := &motifBuilder{}
	b.figure()
	b.filler(71, 50, 73, 52)
	b.figure()
	b.filler(49, 75, 47, 77)
	b.figure()
	require.Len(t, b.notes, 20)

	motifs := detectMotifs(b.notes)

	m := findMotif(motifs, []int{2, 2, -4}, []float64{1, 1, 1, 2})
	require.NotNil(t, m, "expected the repeated figure to qualify")
	assert.Equal(t, 3, m.Occurrences)
	assert.Equal(t, []int{60, 62, 64, 60}, m.Pitches)
	assert.Equal(t, []float64{0, 3.5, 7}, m.Onsets)
}

func TestDetectMotifsTwoOccurrencesDoNot(t *testing.T) {
	b := &motifBuilder{}
	b.figure()
	b.filler(71, 50, 73, 52, 49, 75, 47, 77)
	b.figure()
	b.filler(51, 79, 53, 81)

	motifs := detectMotifs(b.notes)

	assert.Nil(t, findMotif(motifs, []int{2, 2, -4}, []float64{1, 1, 1, 2}))
}

func TestDetectMotifsKeepsTopFive(t *testing.T) {
	// A long strictly uniform line recurs at every window size, producing
	// far more than five qualifying shapes.
	b := &motifBuilder{}
	for i := 0; i < 24; i++ {
		b.add(60+(i%2)*2, 0.5)
	}

	motifs := detectMotifs(b.notes)

	require.Len(t, motifs, 5)
	for i := 1; i < len(motifs); i++ {
		assert.GreaterOrEqual(t, motifs[i-1].Occurrences, motifs[i].Occurrences)
	}
}

func TestDetectMotifsRhythmNormalizationIsScaleInvariant(t *testing.T) {
	b := &motifBuilder{}
	// same shape at quarter scale, then at half scale, then quarter again
	b.add(60, 0.25)
	b.add(62, 0.25)
	b.add(64, 0.5)
	b.add(72, 2.0) // separator with its own duration class
	b.add(60, 0.5)
	b.add(62, 0.5)
	b.add(64, 1.0)
	b.add(74, 2.5)
	b.add(60, 0.25)
	b.add(62, 0.25)
	b.add(64, 0.5)

	motifs := detectMotifs(b.notes)

	m := findMotif(motifs, []int{2, 2}, []float64{1, 1, 2})
	require.NotNil(t, m, "tempo-scaled figure should fingerprint identically")
	assert.Equal(t, 3, m.Occurrences)
}

func TestDetectMotifsTooFewNotes(t *testing.T) {
	assert.Empty(t, detectMotifs([]models.NoteEvent{note(0, 1, 60), note(1, 1, 62)}))
}
