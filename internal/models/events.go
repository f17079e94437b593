package models

import "sort"

// EventType discriminates track events in the canonical JSON document.
type EventType string

const (
	EventNote    EventType = "note"
	EventPedal   EventType = "pedal"
	EventTempo   EventType = "tempo"
	EventSection EventType = "section"
)

// Event is one entry on a track timeline. Positions and durations are in
// beats. Implementations are value types; mutating a copy never affects the
// composition it came from.
type Event interface {
	Type() EventType
	StartBeats() float64
}

// PitchGroup carries hand/voice labels for a subset of a note event's
// pitches. Labels are metadata only and never influence pitch normalization,
// rendering or analysis.
type PitchGroup struct {
	Pitches []int
	Hand    string
	Voice   string
}

// NoteEvent is a single note or chord. Pitches is the canonical projection of
// whatever pitch variant the source document used: sorted, unique, 0..127.
// Groups preserves hand/voice metadata when the source supplied any.
type NoteEvent struct {
	Start    float64
	Duration float64
	Pitches  []int
	Velocity int
	Groups   []PitchGroup
}

func (e NoteEvent) Type() EventType     { return EventNote }
func (e NoteEvent) StartBeats() float64 { return e.Start }

// End returns the beat at which the note releases.
func (e NoteEvent) End() float64 { return e.Start + e.Duration }

// PedalEvent is a sustain-pedal window. A zero Duration is legal and renders
// as a single instantaneous control change.
type PedalEvent struct {
	Start    float64
	Duration float64
	Value    int
}

func (e PedalEvent) Type() EventType     { return EventPedal }
func (e PedalEvent) StartBeats() float64 { return e.Start }

// End returns the beat at which the pedal releases.
func (e PedalEvent) End() float64 { return e.Start + e.Duration }

// TempoEvent changes the tempo. With Duration 0 (or EndBPM 0) the change is
// instantaneous; otherwise the tempo ramps linearly from BPM to EndBPM over
// Duration beats.
type TempoEvent struct {
	Start    float64
	BPM      float64
	EndBPM   float64
	Duration float64
}

func (e TempoEvent) Type() EventType     { return EventTempo }
func (e TempoEvent) StartBeats() float64 { return e.Start }

// Gradual reports whether the event describes a tempo ramp.
func (e TempoEvent) Gradual() bool {
	return e.Duration > 0 && e.EndBPM > 0 && e.EndBPM != e.BPM
}

// SectionEvent is a named structural marker.
type SectionEvent struct {
	Start float64
	Name  string
}

func (e SectionEvent) Type() EventType     { return EventSection }
func (e SectionEvent) StartBeats() float64 { return e.Start }

// typePriority orders events sharing a start beat: tempo changes apply
// before markers, markers before sounding events, notes before pedals.
func typePriority(t EventType) int {
	switch t {
	case EventTempo:
		return 0
	case EventSection:
		return 1
	case EventNote:
		return 2
	case EventPedal:
		return 3
	default:
		return 4
	}
}

// SortEvents orders events by (start, type-priority) in place. The sort is
// stable so equal keys keep document order.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		si, sj := events[i].StartBeats(), events[j].StartBeats()
		if si != sj {
			return si < sj
		}
		return typePriority(events[i].Type()) < typePriority(events[j].Type())
	})
}
