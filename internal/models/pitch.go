package models

import (
	"fmt"
	"sort"
	"strings"
)

// MinPitch and MaxPitch bound the MIDI note range.
const (
	MinPitch = 0
	MaxPitch = 127
)

var noteOffsets = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

var pitchClassNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ParseNoteName converts a note name like "E1", "C4", "F#3", "Bb2" to a MIDI
// note number. Format: letter A-G (case insensitive), optional # or b, octave
// -1..9 with C4 = 60 = middle C.
func ParseNoteName(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("note name too short: %q", name)
	}

	letter := strings.ToUpper(string(name[0]))
	semitone, ok := noteOffsets[letter]
	if !ok {
		return 0, fmt.Errorf("invalid note letter in %q", name)
	}

	idx := 1
	if idx < len(name) {
		switch name[idx] {
		case '#':
			semitone++
			idx++
		case 'b':
			semitone--
			idx++
		}
	}

	if idx >= len(name) {
		return 0, fmt.Errorf("missing octave in note name %q", name)
	}
	var octave int
	if _, err := fmt.Sscanf(name[idx:], "%d", &octave); err != nil {
		return 0, fmt.Errorf("invalid octave in note name %q: %w", name, err)
	}
	if octave < -1 || octave > 9 {
		return 0, fmt.Errorf("octave out of range in note name %q", name)
	}

	midiNote := (octave+1)*12 + semitone
	if midiNote < MinPitch || midiNote > MaxPitch {
		return 0, fmt.Errorf("note %q outside MIDI range", name)
	}
	return midiNote, nil
}

// NoteName formats a MIDI note number as a sharp-spelled name ("C4", "F#3").
func NoteName(pitch int) string {
	octave := pitch/12 - 1
	return fmt.Sprintf("%s%d", pitchClassNames[((pitch%12)+12)%12], octave)
}

// normalizePitches returns the sorted, deduplicated copy of a pitch list.
func normalizePitches(pitches []int) []int {
	seen := make(map[int]bool, len(pitches))
	out := make([]int, 0, len(pitches))
	for _, p := range pitches {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

// pitchesFromGroups projects group metadata to the canonical pitch list.
func pitchesFromGroups(groups []PitchGroup) []int {
	var all []int
	for _, g := range groups {
		all = append(all, g.Pitches...)
	}
	return normalizePitches(all)
}
