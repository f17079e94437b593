package models

// Transforms never mutate the receiver; each returns a fresh Composition so
// callers can keep the source as an immutable value.

// Transpose shifts every pitch by n semitones. Pitches leaving the MIDI
// range are dropped; a note event losing all pitches is dropped with them.
// The key signature shifts with the notes.
func (c *Composition) Transpose(n int) *Composition {
	out := c.clone()
	if out.KeySignature != "" {
		out.KeySignature = TransposeKeySignature(out.KeySignature, n)
	}
	for ti := range out.Tracks {
		events := out.Tracks[ti].Events[:0]
		for _, ev := range out.Tracks[ti].Events {
			note, ok := ev.(NoteEvent)
			if !ok {
				events = append(events, ev)
				continue
			}
			shifted := transposeNote(note, n)
			if len(shifted.Pitches) > 0 {
				events = append(events, shifted)
			}
		}
		out.Tracks[ti].Events = events
	}
	return out.Normalize()
}

func transposeNote(note NoteEvent, n int) NoteEvent {
	var pitches []int
	for _, p := range note.Pitches {
		q := p + n
		if q >= MinPitch && q <= MaxPitch {
			pitches = append(pitches, q)
		}
	}
	note.Pitches = pitches

	if len(note.Groups) > 0 {
		var groups []PitchGroup
		for _, g := range note.Groups {
			var gp []int
			for _, p := range g.Pitches {
				q := p + n
				if q >= MinPitch && q <= MaxPitch {
					gp = append(gp, q)
				}
			}
			if len(gp) > 0 {
				g.Pitches = gp
				groups = append(groups, g)
			}
		}
		note.Groups = groups
	}
	return note
}

// RepairPedals clips overlapping sustain windows on each track so every
// pedal release lands no later than the next press. Order within the track
// is otherwise preserved.
func (c *Composition) RepairPedals() *Composition {
	out := c.clone()
	for ti := range out.Tracks {
		repairTrackPedals(&out.Tracks[ti])
	}
	return out.Normalize()
}

func repairTrackPedals(tr *Track) {
	var pedalIdx []int
	for i, ev := range tr.Events {
		if _, ok := ev.(PedalEvent); ok {
			pedalIdx = append(pedalIdx, i)
		}
	}
	for k := 0; k+1 < len(pedalIdx); k++ {
		cur := tr.Events[pedalIdx[k]].(PedalEvent)
		next := tr.Events[pedalIdx[k+1]].(PedalEvent)
		if cur.End() > next.Start {
			cur.Duration = next.Start - cur.Start
			if cur.Duration < 0 {
				cur.Duration = 0
			}
			tr.Events[pedalIdx[k]] = cur
		}
	}
}

func (c *Composition) clone() *Composition {
	out := *c
	out.Tracks = make([]Track, len(c.Tracks))
	for i, tr := range c.Tracks {
		nt := tr
		nt.Events = make([]Event, len(tr.Events))
		for j, ev := range tr.Events {
			nt.Events[j] = cloneEvent(ev)
		}
		out.Tracks[i] = nt
	}
	return &out
}

func cloneEvent(ev Event) Event {
	switch e := ev.(type) {
	case NoteEvent:
		pitches := make([]int, len(e.Pitches))
		copy(pitches, e.Pitches)
		e.Pitches = pitches
		if len(e.Groups) > 0 {
			groups := make([]PitchGroup, len(e.Groups))
			for i, g := range e.Groups {
				gp := make([]int, len(g.Pitches))
				copy(gp, g.Pitches)
				g.Pitches = gp
				groups[i] = g
			}
			e.Groups = groups
		}
		return e
	default:
		return ev
	}
}
