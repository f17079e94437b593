package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDoc(events string) string {
	return `{
		"title": "Test Piece",
		"bpm": 100,
		"time_signature": {"numerator": 3, "denominator": 4},
		"key_signature": "Am",
		"ppq": 480,
		"tracks": [
			{"name": "Piano", "channel": 0, "program": 0, "events": [` + events + `]}
		]
	}`
}

func TestParseCompositionSinglePitch(t *testing.T) {
	doc := validDoc(`{"type": "note", "start": 0, "duration": 1, "velocity": 80, "pitch": 60}`)
	c, err := ParseComposition([]byte(doc))
	require.NoError(t, err)

	require.Len(t, c.Tracks, 1)
	require.Len(t, c.Tracks[0].Events, 1)
	note, ok := c.Tracks[0].Events[0].(NoteEvent)
	require.True(t, ok)
	assert.Equal(t, []int{60}, note.Pitches)
	assert.Equal(t, 80, note.Velocity)
	assert.Equal(t, "Am", c.KeySignature)
}

func TestParseCompositionPitchVariants(t *testing.T) {
	tests := []struct {
		name   string
		event  string
		want   []int
		groups int
	}{
		{
			name:  "pitch as note name",
			event: `{"type": "note", "start": 0, "duration": 1, "velocity": 80, "pitch": "C4"}`,
			want:  []int{60},
		},
		{
			name:  "pitches numbers",
			event: `{"type": "note", "start": 0, "duration": 1, "velocity": 80, "pitches": [67, 60, 64, 60]}`,
			want:  []int{60, 64, 67},
		},
		{
			name:  "pitches mixed names",
			event: `{"type": "note", "start": 0, "duration": 1, "velocity": 80, "pitches": ["E4", 60, "G4"]}`,
			want:  []int{60, 64, 67},
		},
		{
			name:   "notes with hands",
			event:  `{"type": "note", "start": 0, "duration": 1, "velocity": 80, "notes": [{"pitch": "C4", "hand": "left"}, {"pitch": "E4", "hand": "right"}]}`,
			want:   []int{60, 64},
			groups: 2,
		},
		{
			name:   "groups with voices",
			event:  `{"type": "note", "start": 0, "duration": 1, "velocity": 80, "groups": [{"pitches": [60, 64], "voice": "alto"}, {"pitches": ["G4"], "hand": "right"}]}`,
			want:   []int{60, 64, 67},
			groups: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseComposition([]byte(validDoc(tt.event)))
			require.NoError(t, err)
			note := c.Tracks[0].Events[0].(NoteEvent)
			assert.Equal(t, tt.want, note.Pitches)
			assert.Len(t, note.Groups, tt.groups)
		})
	}
}

func TestParseCompositionRejectsVariantMixes(t *testing.T) {
	tests := []struct {
		name  string
		event string
	}{
		{
			name:  "pitch and pitches",
			event: `{"type": "note", "start": 0, "duration": 1, "velocity": 80, "pitch": 60, "pitches": [64]}`,
		},
		{
			name:  "no variant",
			event: `{"type": "note", "start": 0, "duration": 1, "velocity": 80}`,
		},
		{
			name:  "notes and groups",
			event: `{"type": "note", "start": 0, "duration": 1, "velocity": 80, "notes": [{"pitch": 60}], "groups": [{"pitches": [64]}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseComposition([]byte(validDoc(tt.event)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "exactly one")
		})
	}
}

func TestParseCompositionSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty input", ""},
		{"invalid json", "{nope"},
		{"missing bpm", `{"title": "x", "time_signature": {"numerator": 4, "denominator": 4}, "ppq": 480, "tracks": []}`},
		{"missing ppq", `{"title": "x", "bpm": 100, "time_signature": {"numerator": 4, "denominator": 4}, "tracks": []}`},
		{"missing tracks", `{"title": "x", "bpm": 100, "time_signature": {"numerator": 4, "denominator": 4}, "ppq": 480}`},
		{"bpm out of range", `{"title": "x", "bpm": 700, "time_signature": {"numerator": 4, "denominator": 4}, "ppq": 480, "tracks": []}`},
		{"bad denominator", `{"title": "x", "bpm": 100, "time_signature": {"numerator": 4, "denominator": 5}, "ppq": 480, "tracks": []}`},
		{"unknown event type", validDoc(`{"type": "sparkle", "start": 0}`)},
		{"zero duration note", validDoc(`{"type": "note", "start": 0, "duration": 0, "velocity": 80, "pitch": 60}`)},
		{"zero velocity note", validDoc(`{"type": "note", "start": 0, "duration": 1, "velocity": 0, "pitch": 60}`)},
		{"fractional pitch", validDoc(`{"type": "note", "start": 0, "duration": 1, "velocity": 80, "pitch": 60.5}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseComposition([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseCompositionEmptyTracksGetsDefault(t *testing.T) {
	doc := `{"title": "x", "bpm": 100, "time_signature": {"numerator": 4, "denominator": 4}, "ppq": 480, "tracks": []}`
	c, err := ParseComposition([]byte(doc))
	require.NoError(t, err)
	require.Len(t, c.Tracks, 1)
	assert.Equal(t, "Channel 0", c.Tracks[0].Name)
	assert.Empty(t, c.Tracks[0].Events)
}

func TestCanonicalJSONIsStable(t *testing.T) {
	doc := validDoc(`{"type": "note", "start": 0, "duration": 1, "velocity": 80, "pitches": [64, 60]},
		{"type": "pedal", "start": 0.5, "duration": 2, "value": 127},
		{"type": "tempo", "start": 0, "bpm": 100},
		{"type": "section", "start": 4, "name": "A"}`)

	c, err := ParseComposition([]byte(doc))
	require.NoError(t, err)

	first, err := c.CanonicalJSON()
	require.NoError(t, err)
	assert.True(t, len(first) > 0)
	assert.Equal(t, byte('\n'), first[len(first)-1])

	reparsed, err := ParseComposition(first)
	require.NoError(t, err)
	second, err := reparsed.CanonicalJSON()
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestCanonicalJSONCollapsesSinglePitchList(t *testing.T) {
	doc := validDoc(`{"type": "note", "start": 0, "duration": 1, "velocity": 80, "pitches": [60]}`)
	c, err := ParseComposition([]byte(doc))
	require.NoError(t, err)

	out, err := c.CanonicalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"pitch": 60`)
	assert.NotContains(t, string(out), `"pitches"`)
}

func TestCanonicalJSONPreservesGroups(t *testing.T) {
	doc := validDoc(`{"type": "note", "start": 0, "duration": 1, "velocity": 80, "notes": [{"pitch": 60, "hand": "left"}]}`)
	c, err := ParseComposition([]byte(doc))
	require.NoError(t, err)

	out, err := c.CanonicalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"groups"`)
	assert.Contains(t, string(out), `"hand": "left"`)
}
