package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// CanonicalJSON serializes the composition deterministically: keys sorted,
// 2-space indent, trailing newline. Re-serializing a parsed document yields
// byte-identical output, so round-trips are diff-stable.
func (c *Composition) CanonicalJSON() ([]byte, error) {
	doc := map[string]interface{}{
		"title": c.Title,
		"bpm":   c.BPM,
		"time_signature": map[string]interface{}{
			"numerator":   c.TimeSignature.Numerator,
			"denominator": c.TimeSignature.Denominator,
		},
		"ppq":    c.PPQ,
		"tracks": tracksToMaps(c.Tracks),
	}
	if c.KeySignature != "" {
		doc["key_signature"] = c.KeySignature
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal composition: %w", err)
	}
	return append(out, '\n'), nil
}

func tracksToMaps(tracks []Track) []interface{} {
	out := make([]interface{}, len(tracks))
	for i, tr := range tracks {
		events := make([]interface{}, len(tr.Events))
		for j, ev := range tr.Events {
			events[j] = eventToMap(ev)
		}
		out[i] = map[string]interface{}{
			"name":    tr.Name,
			"channel": tr.Channel,
			"program": tr.Program,
			"events":  events,
		}
	}
	return out
}

func eventToMap(ev Event) map[string]interface{} {
	switch e := ev.(type) {
	case NoteEvent:
		m := map[string]interface{}{
			"type":     string(EventNote),
			"start":    e.Start,
			"duration": e.Duration,
			"velocity": e.Velocity,
		}
		switch {
		case len(e.Groups) > 0:
			groups := make([]interface{}, len(e.Groups))
			for i, g := range e.Groups {
				gm := map[string]interface{}{"pitches": intsToInterfaces(g.Pitches)}
				if g.Hand != "" {
					gm["hand"] = g.Hand
				}
				if g.Voice != "" {
					gm["voice"] = g.Voice
				}
				groups[i] = gm
			}
			m["groups"] = groups
		case len(e.Pitches) == 1:
			m["pitch"] = e.Pitches[0]
		default:
			m["pitches"] = intsToInterfaces(e.Pitches)
		}
		return m
	case PedalEvent:
		return map[string]interface{}{
			"type":     string(EventPedal),
			"start":    e.Start,
			"duration": e.Duration,
			"value":    e.Value,
		}
	case TempoEvent:
		m := map[string]interface{}{
			"type":  string(EventTempo),
			"start": e.Start,
			"bpm":   e.BPM,
		}
		if e.Gradual() {
			m["end_bpm"] = e.EndBPM
			m["duration"] = e.Duration
		}
		return m
	case SectionEvent:
		return map[string]interface{}{
			"type":  string(EventSection),
			"start": e.Start,
			"name":  e.Name,
		}
	default:
		// Validate rejects unknown event types before serialization.
		panic(fmt.Sprintf("models: unhandled event type %T", ev))
	}
}

func intsToInterfaces(xs []int) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

type documentJSON struct {
	Title         *string        `json:"title"`
	BPM           *float64       `json:"bpm"`
	TimeSignature *TimeSignature `json:"time_signature"`
	KeySignature  *string        `json:"key_signature"`
	PPQ           *int           `json:"ppq"`
	Tracks        *[]trackJSON   `json:"tracks"`
}

type trackJSON struct {
	Name    string     `json:"name"`
	Channel *int       `json:"channel"`
	Program int        `json:"program"`
	Events  []rawEvent `json:"events"`
}

type rawEvent struct {
	Type     string          `json:"type"`
	Start    *float64        `json:"start"`
	Duration *float64        `json:"duration"`
	Velocity *int            `json:"velocity"`
	Pitch    json.RawMessage `json:"pitch"`
	Pitches  json.RawMessage `json:"pitches"`
	Notes    json.RawMessage `json:"notes"`
	Groups   json.RawMessage `json:"groups"`
	BPM      *float64        `json:"bpm"`
	EndBPM   *float64        `json:"end_bpm"`
	Value    *int            `json:"value"`
	Name     *string         `json:"name"`
}

type noteObjectJSON struct {
	Pitch json.RawMessage `json:"pitch"`
	Hand  string          `json:"hand"`
	Voice string          `json:"voice"`
}

type groupObjectJSON struct {
	Pitches []json.RawMessage `json:"pitches"`
	Hand    string            `json:"hand"`
	Voice   string            `json:"voice"`
}

// ParseComposition decodes, normalizes and validates a canonical JSON
// document. Schema violations surface immediately; nothing is retried.
func ParseComposition(data []byte) (*Composition, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("parse composition: empty input")
	}

	var doc documentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse composition: %w", err)
	}
	if doc.BPM == nil {
		return nil, fmt.Errorf("parse composition: missing bpm")
	}
	if doc.TimeSignature == nil {
		return nil, fmt.Errorf("parse composition: missing time_signature")
	}
	if doc.PPQ == nil {
		return nil, fmt.Errorf("parse composition: missing ppq")
	}
	if doc.Tracks == nil {
		return nil, fmt.Errorf("parse composition: missing tracks")
	}

	c := &Composition{
		BPM:           *doc.BPM,
		TimeSignature: *doc.TimeSignature,
		PPQ:           *doc.PPQ,
	}
	if doc.Title != nil {
		c.Title = *doc.Title
	}
	if doc.KeySignature != nil {
		c.KeySignature = *doc.KeySignature
	}

	for ti, rt := range *doc.Tracks {
		tr := Track{Name: rt.Name, Program: rt.Program}
		if rt.Channel != nil {
			tr.Channel = *rt.Channel
		}
		if tr.Name == "" {
			tr.Name = DefaultTrackName(tr.Channel)
		}
		for ei, re := range rt.Events {
			ev, err := parseEvent(re)
			if err != nil {
				return nil, fmt.Errorf("parse composition: track %d event %d: %w", ti, ei, err)
			}
			tr.Events = append(tr.Events, ev)
		}
		c.Tracks = append(c.Tracks, tr)
	}

	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("parse composition: %w", err)
	}
	return c, nil
}

func parseEvent(re rawEvent) (Event, error) {
	if re.Start == nil {
		return nil, fmt.Errorf("%s event missing start", re.Type)
	}
	switch EventType(re.Type) {
	case EventNote:
		return parseNoteEvent(re)
	case EventPedal:
		ev := PedalEvent{Start: *re.Start, Value: 127}
		if re.Duration != nil {
			ev.Duration = *re.Duration
		}
		if re.Value != nil {
			ev.Value = *re.Value
		}
		return ev, nil
	case EventTempo:
		if re.BPM == nil {
			return nil, fmt.Errorf("tempo event missing bpm")
		}
		ev := TempoEvent{Start: *re.Start, BPM: *re.BPM}
		if re.EndBPM != nil {
			ev.EndBPM = *re.EndBPM
		}
		if re.Duration != nil {
			ev.Duration = *re.Duration
		}
		return ev, nil
	case EventSection:
		ev := SectionEvent{Start: *re.Start}
		if re.Name != nil {
			ev.Name = *re.Name
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", re.Type)
	}
}

func parseNoteEvent(re rawEvent) (Event, error) {
	if re.Duration == nil {
		return nil, fmt.Errorf("note event missing duration")
	}
	if re.Velocity == nil {
		return nil, fmt.Errorf("note event missing velocity")
	}

	variants := 0
	for _, raw := range []json.RawMessage{re.Pitch, re.Pitches, re.Notes, re.Groups} {
		if present(raw) {
			variants++
		}
	}
	if variants != 1 {
		return nil, fmt.Errorf("note event must supply exactly one of pitch/pitches/notes/groups, got %d", variants)
	}

	ev := NoteEvent{Start: *re.Start, Duration: *re.Duration, Velocity: *re.Velocity}

	switch {
	case present(re.Pitch):
		p, err := parsePitchValue(re.Pitch)
		if err != nil {
			return nil, err
		}
		ev.Pitches = []int{p}
	case present(re.Pitches):
		var raws []json.RawMessage
		if err := json.Unmarshal(re.Pitches, &raws); err != nil {
			return nil, fmt.Errorf("pitches: %w", err)
		}
		pitches := make([]int, 0, len(raws))
		for _, raw := range raws {
			p, err := parsePitchValue(raw)
			if err != nil {
				return nil, err
			}
			pitches = append(pitches, p)
		}
		ev.Pitches = normalizePitches(pitches)
	case present(re.Notes):
		var notes []noteObjectJSON
		if err := json.Unmarshal(re.Notes, &notes); err != nil {
			return nil, fmt.Errorf("notes: %w", err)
		}
		for _, n := range notes {
			p, err := parsePitchValue(n.Pitch)
			if err != nil {
				return nil, err
			}
			ev.Groups = append(ev.Groups, PitchGroup{Pitches: []int{p}, Hand: n.Hand, Voice: n.Voice})
		}
		ev.Pitches = pitchesFromGroups(ev.Groups)
	case present(re.Groups):
		var groups []groupObjectJSON
		if err := json.Unmarshal(re.Groups, &groups); err != nil {
			return nil, fmt.Errorf("groups: %w", err)
		}
		for _, g := range groups {
			pitches := make([]int, 0, len(g.Pitches))
			for _, raw := range g.Pitches {
				p, err := parsePitchValue(raw)
				if err != nil {
					return nil, err
				}
				pitches = append(pitches, p)
			}
			ev.Groups = append(ev.Groups, PitchGroup{
				Pitches: normalizePitches(pitches),
				Hand:    g.Hand,
				Voice:   g.Voice,
			})
		}
		ev.Pitches = pitchesFromGroups(ev.Groups)
	}

	if len(ev.Pitches) == 0 {
		return nil, fmt.Errorf("note event has no pitches")
	}
	return ev, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// parsePitchValue accepts a MIDI number or a note name string ("C4").
func parsePitchValue(raw json.RawMessage) (int, error) {
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if num != math.Trunc(num) {
			return 0, fmt.Errorf("pitch %g is not an integer", num)
		}
		return int(num), nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return ParseNoteName(name)
	}
	return 0, fmt.Errorf("pitch must be a number or note name, got %s", string(raw))
}
