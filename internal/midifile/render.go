package midifile

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/etude-works/etude-api/internal/models"
	"github.com/etude-works/etude-api/internal/timemap"
)

// Same-tick ordering classes. Note-offs precede note-ons so retriggered
// pitches never hang, and a pedal release at the same tick lands after the
// chord it was holding.
const (
	classNoteOff = iota
	classNoteOn
	classPedalRelease
	classOther
)

type renderedMessage struct {
	tick  uint32
	class int
	msg   smf.Message
}

// toTrack sorts messages by (tick, class), stable within a class, and turns
// absolute ticks into delta times. Prefix messages land at tick zero ahead
// of everything else.
func toTrack(prefix []smf.Message, msgs []renderedMessage) smf.Track {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return msgs[i].class < msgs[j].class
	})
	track := smf.Track{}
	for _, m := range prefix {
		track = append(track, smf.Event{Delta: 0, Message: m})
	}
	var last uint32
	for _, m := range msgs {
		track = append(track, smf.Event{Delta: m.tick - last, Message: m.msg})
		last = m.tick
	}
	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}

func beatTick(beats float64, ppq int) uint32 {
	if beats <= 0 {
		return 0
	}
	return uint32(math.Round(beats * float64(ppq)))
}

func durationTicks(beats float64, ppq int) uint32 {
	if beats <= 0 {
		return 0
	}
	return uint32(math.Round(beats * float64(ppq)))
}

// TempoBreakpoints flattens the composition's tempo events into breakpoints.
// A gradual change becomes a breakpoint every half beat, linearly
// interpolated, plus the exact endpoint. An event at beat zero replaces the
// nominal initial tempo because later breakpoints win on equal ticks.
func TempoBreakpoints(c *models.Composition) []timemap.Breakpoint {
	bps := []timemap.Breakpoint{{Tick: 0, BPM: c.BPM}}
	for _, te := range c.TempoEvents() {
		if !te.Gradual() {
			bps = append(bps, timemap.Breakpoint{Tick: beatTick(te.Start, c.PPQ), BPM: te.BPM})
			continue
		}
		for offset := 0.0; offset < te.Duration; offset += 0.5 {
			bpm := te.BPM + (te.EndBPM-te.BPM)*(offset/te.Duration)
			bps = append(bps, timemap.Breakpoint{Tick: beatTick(te.Start+offset, c.PPQ), BPM: bpm})
		}
		bps = append(bps, timemap.Breakpoint{Tick: beatTick(te.Start+te.Duration, c.PPQ), BPM: te.EndBPM})
	}
	return bps
}

// render lays the composition out as an SMF1 file: a conductor track holding
// title, time signature, key signature, tempo breakpoints and section
// markers, then one track per model track with its notes and pedal windows.
func render(c *models.Composition) (*smf.SMF, error) {
	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(c.PPQ)

	tm, err := timemap.New(c.PPQ, TempoBreakpoints(c))
	if err != nil {
		return nil, fmt.Errorf("render midi: %w", err)
	}

	prefix := []smf.Message{
		smf.MetaTrackSequenceName(c.Title),
		smf.MetaTimeSig(uint8(c.TimeSignature.Numerator), uint8(c.TimeSignature.Denominator), 24, 8),
	}
	if c.KeySignature != "" {
		root, isMajor, accidentals, flat, err := models.KeySignatureMeta(c.KeySignature)
		if err == nil {
			prefix = append(prefix, smf.MetaKey(root, isMajor, accidentals, flat))
		}
	}
	var conductor []renderedMessage
	for _, bp := range tm.Breakpoints() {
		conductor = append(conductor, renderedMessage{
			tick:  bp.Tick,
			class: classOther,
			msg:   smf.MetaTempo(bp.BPM),
		})
	}
	for _, tr := range c.Tracks {
		for _, ev := range tr.Events {
			if sec, ok := ev.(models.SectionEvent); ok {
				conductor = append(conductor, renderedMessage{
					tick:  beatTick(sec.Start, c.PPQ),
					class: classOther,
					msg:   smf.MetaMarker(sec.Name),
				})
			}
		}
	}
	s.Add(toTrack(prefix, conductor))

	for _, tr := range c.Tracks {
		ch := uint8(tr.Channel)
		trackPrefix := []smf.Message{
			smf.MetaTrackSequenceName(tr.Name),
			smf.Message(midi.ProgramChange(ch, uint8(tr.Program))),
		}
		var msgs []renderedMessage
		for _, ev := range tr.Events {
			switch e := ev.(type) {
			case models.NoteEvent:
				start := beatTick(e.Start, c.PPQ)
				dur := durationTicks(e.Duration, c.PPQ)
				if dur < 1 {
					dur = 1
				}
				for _, p := range e.Pitches {
					msgs = append(msgs, renderedMessage{
						tick:  start,
						class: classNoteOn,
						msg:   smf.Message(midi.NoteOn(ch, uint8(p), uint8(e.Velocity))),
					})
					msgs = append(msgs, renderedMessage{
						tick:  start + dur,
						class: classNoteOff,
						msg:   smf.Message(midi.NoteOff(ch, uint8(p))),
					})
				}
			case models.PedalEvent:
				press := beatTick(e.Start, c.PPQ)
				dur := durationTicks(e.Duration, c.PPQ)
				msgs = append(msgs, renderedMessage{
					tick:  press,
					class: classOther,
					msg:   smf.Message(midi.ControlChange(ch, ccSustain, uint8(e.Value))),
				})
				if dur > 0 {
					msgs = append(msgs, renderedMessage{
						tick:  press + dur,
						class: classPedalRelease,
						msg:   smf.Message(midi.ControlChange(ch, ccSustain, 0)),
					})
				}
			case models.TempoEvent, models.SectionEvent:
				// carried by the conductor track
			default:
				return nil, fmt.Errorf("render midi: unsupported event type %T", ev)
			}
		}
		s.Add(toTrack(trackPrefix, msgs))
	}
	return s, nil
}

// Encode renders the composition to standard MIDI bytes. The output is
// deterministic: encoding the same composition twice yields identical files.
func Encode(c *models.Composition) ([]byte, error) {
	s, err := render(c)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode midi: %w", err)
	}
	return buf.Bytes(), nil
}
