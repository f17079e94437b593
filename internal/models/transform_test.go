package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pianoPiece(events ...Event) *Composition {
	c := &Composition{
		Title:         "Sketch",
		BPM:           120,
		TimeSignature: TimeSignature{Numerator: 4, Denominator: 4},
		KeySignature:  "C",
		PPQ:           480,
		Tracks:        []Track{{Name: "Piano", Channel: 0, Events: events}},
	}
	return c.Normalize()
}

func TestTransposeShiftsPitchesAndKey(t *testing.T) {
	src := pianoPiece(
		NoteEvent{Start: 0, Duration: 1, Pitches: []int{60, 64, 67}, Velocity: 80},
		PedalEvent{Start: 0, Duration: 2, Value: 127},
	)

	up := src.Transpose(2)
	require.Len(t, up.Tracks, 1)

	note := up.Tracks[0].Events[0].(NoteEvent)
	assert.Equal(t, []int{62, 66, 69}, note.Pitches)
	assert.Equal(t, "D", up.KeySignature)

	pedal := up.Tracks[0].Events[1].(PedalEvent)
	assert.Equal(t, 127, pedal.Value)

	// source untouched
	original := src.Tracks[0].Events[0].(NoteEvent)
	assert.Equal(t, []int{60, 64, 67}, original.Pitches)
}

func TestTransposeDropsOutOfRangePitches(t *testing.T) {
	src := pianoPiece(
		NoteEvent{Start: 0, Duration: 1, Pitches: []int{1, 60}, Velocity: 80},
		NoteEvent{Start: 1, Duration: 1, Pitches: []int{2}, Velocity: 80},
	)

	down := src.Transpose(-5)
	notes := down.Tracks[0].Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, []int{55}, notes[0].Pitches)
}

func TestRepairPedalsClipsOverlap(t *testing.T) {
	src := pianoPiece(
		PedalEvent{Start: 0, Duration: 3, Value: 127},
		PedalEvent{Start: 2, Duration: 2, Value: 100},
	)

	fixed := src.RepairPedals()
	pedals := fixed.Tracks[0].Pedals()
	require.Len(t, pedals, 2)
	assert.Equal(t, 2.0, pedals[0].Duration)
	assert.Equal(t, 2.0, pedals[1].Duration)

	// source untouched
	assert.Equal(t, 3.0, src.Tracks[0].Pedals()[0].Duration)
}

func TestRepairPedalsLeavesCleanWindowsAlone(t *testing.T) {
	src := pianoPiece(
		PedalEvent{Start: 0, Duration: 1, Value: 127},
		PedalEvent{Start: 2, Duration: 1, Value: 127},
	)

	fixed := src.RepairPedals()
	pedals := fixed.Tracks[0].Pedals()
	require.Len(t, pedals, 2)
	assert.Equal(t, 1.0, pedals[0].Duration)
	assert.Equal(t, 1.0, pedals[1].Duration)
}
