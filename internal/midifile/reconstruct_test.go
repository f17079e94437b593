package midifile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func event(delta uint32, msg midi.Message) smf.Event {
	return smf.Event{Delta: delta, Message: smf.Message(msg)}
}

func TestReplayTrackPairsNotes(t *testing.T) {
	track := smf.Track{
		event(0, midi.NoteOn(0, 60, 90)),
		event(480, midi.NoteOff(0, 60)),
		event(0, midi.NoteOn(0, 64, 70)),
		event(240, midi.NoteOff(0, 64)),
	}

	notes, pedals := replayTrack(track)

	require.Len(t, notes, 2)
	assert.Empty(t, pedals)
	assert.Equal(t, rawNote{channel: 0, startTick: 0, endTick: 480, pitch: 60, velocity: 90}, notes[0])
	assert.Equal(t, rawNote{channel: 0, startTick: 480, endTick: 720, pitch: 64, velocity: 70}, notes[1])
}

func TestReplayTrackFIFOOnOverlappingPitch(t *testing.T) {
	// Same pitch retriggered while still sounding: the off pairs with the
	// oldest on, the newer on is force-closed at track end.
	track := smf.Track{
		event(0, midi.NoteOn(0, 60, 90)),
		event(480, midi.NoteOn(0, 60, 70)),
		event(480, midi.NoteOff(0, 60)),
	}

	notes, _ := replayTrack(track)

	require.Len(t, notes, 2)
	assert.Equal(t, rawNote{channel: 0, startTick: 0, endTick: 960, pitch: 60, velocity: 90}, notes[0])
	assert.Equal(t, rawNote{channel: 0, startTick: 480, endTick: 960, pitch: 60, velocity: 70}, notes[1])
}

func TestReplayTrackZeroVelocityActsAsNoteOff(t *testing.T) {
	track := smf.Track{
		event(0, midi.NoteOn(2, 72, 88)),
		event(960, midi.NoteOn(2, 72, 0)),
	}

	notes, _ := replayTrack(track)

	require.Len(t, notes, 1)
	assert.Equal(t, rawNote{channel: 2, startTick: 0, endTick: 960, pitch: 72, velocity: 88}, notes[0])
}

func TestReplayTrackDropsDegenerateAndUnmatched(t *testing.T) {
	track := smf.Track{
		event(100, midi.NoteOn(0, 60, 90)),
		event(0, midi.NoteOff(0, 60)), // zero-length note, dropped
		event(0, midi.NoteOff(0, 64)), // never opened, ignored
	}

	notes, _ := replayTrack(track)

	assert.Empty(t, notes)
}

func TestReplayTrackSustainWindow(t *testing.T) {
	track := smf.Track{
		event(100, midi.ControlChange(0, ccSustain, 127)),
		event(100, midi.ControlChange(0, ccSustain, 90)), // re-press ignored, no nesting
		event(300, midi.ControlChange(0, ccSustain, 0)),
	}

	_, pedals := replayTrack(track)

	require.Len(t, pedals, 1)
	assert.Equal(t, rawPedal{channel: 0, startTick: 100, endTick: 500, value: 127}, pedals[0])
}

func TestReplayTrackUnmatchedReleaseKeptAsZeroWindow(t *testing.T) {
	track := smf.Track{
		event(300, midi.ControlChange(0, ccSustain, 0)),
	}

	_, pedals := replayTrack(track)

	require.Len(t, pedals, 1)
	assert.Equal(t, rawPedal{channel: 0, startTick: 300, endTick: 300, value: 0}, pedals[0])
}

func TestReplayTrackForceClosesOpenWindowsAtTrackEnd(t *testing.T) {
	track := smf.Track{
		event(0, midi.ControlChange(1, ccSustain, 100)),
		event(0, midi.NoteOn(1, 55, 60)),
		event(700, midi.NoteOff(1, 55)),
	}

	notes, pedals := replayTrack(track)

	require.Len(t, notes, 1)
	require.Len(t, pedals, 1)
	assert.Equal(t, rawPedal{channel: 1, startTick: 0, endTick: 700, value: 100}, pedals[0])
}

func TestReplayTrackIgnoresOtherControllers(t *testing.T) {
	track := smf.Track{
		event(0, midi.ControlChange(0, 1, 64)), // mod wheel
		event(480, midi.ControlChange(0, 7, 100)),
	}

	notes, pedals := replayTrack(track)

	assert.Empty(t, notes)
	assert.Empty(t, pedals)
}

func TestGroupChordsExactSignature(t *testing.T) {
	notes := []rawNote{
		{channel: 0, startTick: 100, endTick: 200, pitch: 64, velocity: 80},
		{channel: 0, startTick: 100, endTick: 200, pitch: 60, velocity: 80},
		{channel: 0, startTick: 100, endTick: 200, pitch: 67, velocity: 80},
		{channel: 0, startTick: 100, endTick: 210, pitch: 72, velocity: 80}, // later release
		{channel: 0, startTick: 100, endTick: 200, pitch: 76, velocity: 90}, // different velocity
		{channel: 1, startTick: 100, endTick: 200, pitch: 60, velocity: 80}, // different channel
	}

	groups := groupChords(notes)

	require.Len(t, groups, 4)
	assert.Equal(t, []int{60, 64, 67}, groups[0].pitches)
	assert.Equal(t, uint8(80), groups[0].velocity)
	assert.Equal(t, []int{76}, groups[1].pitches)
	assert.Equal(t, []int{72}, groups[2].pitches)
	assert.Equal(t, uint8(1), groups[3].channel)
}

func TestGroupChordsDeduplicatesPitches(t *testing.T) {
	notes := []rawNote{
		{channel: 0, startTick: 0, endTick: 100, pitch: 60, velocity: 80},
		{channel: 0, startTick: 0, endTick: 100, pitch: 60, velocity: 80},
		{channel: 0, startTick: 0, endTick: 100, pitch: 64, velocity: 80},
	}

	groups := groupChords(notes)

	require.Len(t, groups, 1)
	assert.Equal(t, []int{60, 64}, groups[0].pitches)
}

func TestGroupChordsOrderedByStartTick(t *testing.T) {
	notes := []rawNote{
		{channel: 0, startTick: 480, endTick: 960, pitch: 62, velocity: 70},
		{channel: 0, startTick: 0, endTick: 480, pitch: 60, velocity: 70},
	}

	groups := groupChords(notes)

	require.Len(t, groups, 2)
	assert.Equal(t, uint32(0), groups[0].startTick)
	assert.Equal(t, uint32(480), groups[1].startTick)
}
