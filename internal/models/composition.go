package models

import (
	"fmt"
)

// Validation bounds for the canonical document.
const (
	MinBPM = 20.0
	MaxBPM = 400.0
	MinPPQ = 24
	MaxPPQ = 9600

	MinChannel  = 0
	MaxChannel  = 15
	MinProgram  = 0
	MaxProgram  = 127
	MinVelocity = 1
	MaxVelocity = 127
	MinNumer    = 1
	MaxNumer    = 32
)

// TimeSignature is the meter of a composition.
type TimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// BeatsPerBar converts the signature to quarter-note beats per bar.
func (ts TimeSignature) BeatsPerBar() float64 {
	if ts.Numerator <= 0 || ts.Denominator <= 0 {
		return 4
	}
	return float64(ts.Numerator) * 4 / float64(ts.Denominator)
}

func validDenominator(d int) bool {
	switch d {
	case 1, 2, 4, 8, 16, 32:
		return true
	}
	return false
}

// Track is one instrument line: a channel, a program and its ordered events.
type Track struct {
	Name    string
	Channel int
	Program int
	Events  []Event
}

// Notes returns the track's note events in timeline order.
func (t Track) Notes() []NoteEvent {
	var out []NoteEvent
	for _, ev := range t.Events {
		if n, ok := ev.(NoteEvent); ok {
			out = append(out, n)
		}
	}
	return out
}

// Pedals returns the track's pedal events in timeline order.
func (t Track) Pedals() []PedalEvent {
	var out []PedalEvent
	for _, ev := range t.Events {
		if p, ok := ev.(PedalEvent); ok {
			out = append(out, p)
		}
	}
	return out
}

// DefaultTrackName names a track after its channel when the source provided
// no label.
func DefaultTrackName(channel int) string {
	return fmt.Sprintf("Channel %d", channel)
}

// Composition is the canonical in-memory model. Once built it is treated as
// an immutable value; transforms return fresh instances.
type Composition struct {
	Title         string
	BPM           float64
	TimeSignature TimeSignature
	KeySignature  string
	PPQ           int
	Tracks        []Track
}

// Normalize sorts every track's events by (start, type-priority) and
// guarantees the non-empty track invariant. It returns the receiver for
// chaining during assembly; callers treat the result as final.
func (c *Composition) Normalize() *Composition {
	if len(c.Tracks) == 0 {
		c.Tracks = []Track{{Name: DefaultTrackName(0), Channel: 0}}
	}
	for i := range c.Tracks {
		SortEvents(c.Tracks[i].Events)
	}
	return c
}

// Validate checks every invariant of the canonical document. The first
// violation found is returned with enough context to locate it.
func (c *Composition) Validate() error {
	if c.BPM < MinBPM || c.BPM > MaxBPM {
		return fmt.Errorf("bpm %g outside %g..%g", c.BPM, MinBPM, MaxBPM)
	}
	if c.TimeSignature.Numerator < MinNumer || c.TimeSignature.Numerator > MaxNumer {
		return fmt.Errorf("time signature numerator %d outside %d..%d",
			c.TimeSignature.Numerator, MinNumer, MaxNumer)
	}
	if !validDenominator(c.TimeSignature.Denominator) {
		return fmt.Errorf("time signature denominator %d not a power of two in 1..32",
			c.TimeSignature.Denominator)
	}
	if c.KeySignature != "" {
		if _, _, err := ParseKeySignature(c.KeySignature); err != nil {
			return fmt.Errorf("key signature: %w", err)
		}
	}
	if c.PPQ < MinPPQ || c.PPQ > MaxPPQ {
		return fmt.Errorf("ppq %d outside %d..%d", c.PPQ, MinPPQ, MaxPPQ)
	}
	if len(c.Tracks) == 0 {
		return fmt.Errorf("composition has no tracks")
	}
	for ti, tr := range c.Tracks {
		if err := validateTrack(tr); err != nil {
			return fmt.Errorf("track %d (%q): %w", ti, tr.Name, err)
		}
	}
	return nil
}

func validateTrack(tr Track) error {
	if tr.Channel < MinChannel || tr.Channel > MaxChannel {
		return fmt.Errorf("channel %d outside %d..%d", tr.Channel, MinChannel, MaxChannel)
	}
	if tr.Program < MinProgram || tr.Program > MaxProgram {
		return fmt.Errorf("program %d outside %d..%d", tr.Program, MinProgram, MaxProgram)
	}
	for ei, ev := range tr.Events {
		if err := validateEvent(ev); err != nil {
			return fmt.Errorf("event %d: %w", ei, err)
		}
	}
	return nil
}

func validateEvent(ev Event) error {
	if ev.StartBeats() < 0 {
		return fmt.Errorf("%s start %g is negative", ev.Type(), ev.StartBeats())
	}
	switch e := ev.(type) {
	case NoteEvent:
		if e.Duration <= 0 {
			return fmt.Errorf("note duration %g must be positive", e.Duration)
		}
		if len(e.Pitches) == 0 {
			return fmt.Errorf("note has no pitches")
		}
		prev := -1
		for _, p := range e.Pitches {
			if p < MinPitch || p > MaxPitch {
				return fmt.Errorf("pitch %d outside MIDI range", p)
			}
			if p <= prev {
				return fmt.Errorf("pitches not sorted unique at %d", p)
			}
			prev = p
		}
		if e.Velocity < MinVelocity || e.Velocity > MaxVelocity {
			return fmt.Errorf("velocity %d outside %d..%d", e.Velocity, MinVelocity, MaxVelocity)
		}
	case PedalEvent:
		if e.Duration < 0 {
			return fmt.Errorf("pedal duration %g is negative", e.Duration)
		}
		if e.Value < 0 || e.Value > 127 {
			return fmt.Errorf("pedal value %d outside 0..127", e.Value)
		}
	case TempoEvent:
		if e.BPM < MinBPM || e.BPM > MaxBPM {
			return fmt.Errorf("tempo bpm %g outside %g..%g", e.BPM, MinBPM, MaxBPM)
		}
		if e.Gradual() && (e.EndBPM < MinBPM || e.EndBPM > MaxBPM) {
			return fmt.Errorf("tempo end bpm %g outside %g..%g", e.EndBPM, MinBPM, MaxBPM)
		}
		if e.Duration < 0 {
			return fmt.Errorf("tempo duration %g is negative", e.Duration)
		}
	case SectionEvent:
		// any name is fine, including empty
	default:
		return fmt.Errorf("unknown event type %T", ev)
	}
	return nil
}

// TempoEvents collects tempo changes from every track in beat order,
// regardless of which track carries them.
func (c *Composition) TempoEvents() []TempoEvent {
	var out []TempoEvent
	for _, tr := range c.Tracks {
		for _, ev := range tr.Events {
			if te, ok := ev.(TempoEvent); ok {
				out = append(out, te)
			}
		}
	}
	events := make([]Event, len(out))
	for i, te := range out {
		events[i] = te
	}
	SortEvents(events)
	for i, ev := range events {
		out[i] = ev.(TempoEvent)
	}
	return out
}

// LastEventEnd returns the beat where the last event (note or pedal release,
// marker start) falls across all tracks.
func (c *Composition) LastEventEnd() float64 {
	var last float64
	for _, tr := range c.Tracks {
		for _, ev := range tr.Events {
			end := ev.StartBeats()
			switch e := ev.(type) {
			case NoteEvent:
				end = e.End()
			case PedalEvent:
				end = e.End()
			}
			if end > last {
				last = end
			}
		}
	}
	return last
}
