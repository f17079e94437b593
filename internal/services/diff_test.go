package services

import (
	"testing"

	"github.com/etude-works/etude-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffIdentical(t *testing.T) {
	svc := NewDiffService()
	a := texturedPiece("Same")
	b := texturedPiece("Same")

	report := svc.Diff(a, b)

	assert.True(t, report.Identical)
	assert.Empty(t, report.Fields)
	assert.Empty(t, report.Added)
	assert.Empty(t, report.Removed)
	assert.Equal(t, report.Notes.A, report.Notes.B)
}

func TestDiffFieldChanges(t *testing.T) {
	svc := NewDiffService()
	a := simplePiece("One", 60, 64)
	b := simplePiece("Two", 60, 64)
	b.BPM = 140
	b.KeySignature = "G"

	report := svc.Diff(a, b)

	require.False(t, report.Identical)
	fields := make(map[string]FieldDiff, len(report.Fields))
	for _, f := range report.Fields {
		fields[f.Field] = f
	}
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "bpm")
	assert.Contains(t, fields, "key_signature")
	assert.NotContains(t, fields, "ppq")
	assert.Equal(t, 100.0, fields["bpm"].A)
	assert.Equal(t, 140.0, fields["bpm"].B)
}

func TestDiffAddedAndRemovedNotes(t *testing.T) {
	svc := NewDiffService()
	a := simplePiece("P", 60, 64, 67)
	b := simplePiece("P", 60, 64, 72)

	report := svc.Diff(a, b)

	require.False(t, report.Identical)
	require.Len(t, report.Added, 1)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, []int{72}, report.Added[0].Pitches)
	assert.Equal(t, []int{67}, report.Removed[0].Pitches)
	assert.Equal(t, 2.0, report.Added[0].Start)
}

func TestDiffTransposedPiece(t *testing.T) {
	svc := NewDiffService()
	a := simplePiece("P", 60, 64, 67)
	b := a.Transpose(2)

	report := svc.Diff(a, b)

	assert.False(t, report.Identical)
	assert.Len(t, report.Added, 3)
	assert.Len(t, report.Removed, 3)
	assert.Equal(t, report.Events.A, report.Events.B)
}

func TestDiffDuplicateNotesAsMultiset(t *testing.T) {
	svc := NewDiffService()

	// Two identical notes on one side, one on the other: exactly one delta.
	a := &models.Composition{
		BPM:           100,
		TimeSignature: models.TimeSignature{Numerator: 4, Denominator: 4},
		PPQ:           480,
		Tracks: []models.Track{{
			Name: "Piano",
			Events: []models.Event{
				models.NoteEvent{Start: 0, Duration: 1, Pitches: []int{60}, Velocity: 80},
				models.NoteEvent{Start: 0, Duration: 1, Pitches: []int{60}, Velocity: 80},
			},
		}},
	}
	b := &models.Composition{
		BPM:           100,
		TimeSignature: models.TimeSignature{Numerator: 4, Denominator: 4},
		PPQ:           480,
		Tracks: []models.Track{{
			Name: "Piano",
			Events: []models.Event{
				models.NoteEvent{Start: 0, Duration: 1, Pitches: []int{60}, Velocity: 80},
			},
		}},
	}

	report := svc.Diff(a, b)

	assert.Empty(t, report.Added)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, 2, report.Notes.A)
	assert.Equal(t, 1, report.Notes.B)
}

func TestDiffDeltasSorted(t *testing.T) {
	svc := NewDiffService()
	a := simplePiece("P", 60)
	b := simplePiece("P", 60, 62, 64, 65)

	report := svc.Diff(a, b)

	require.Len(t, report.Added, 3)
	for i := 1; i < len(report.Added); i++ {
		assert.LessOrEqual(t, report.Added[i-1].Start, report.Added[i].Start)
	}
}
