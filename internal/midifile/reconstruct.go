// Package midifile converts between standard MIDI files and the canonical
// composition model: decoding reconstructs closed note/pedal intervals from
// raw event streams and assembles tracks, encoding renders the model back to
// deterministic MIDI bytes.
package midifile

import (
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Sustain pedal controller number.
const ccSustain = 64

// rawNote is a closed note interval. Raw intervals only live inside the
// decode pipeline; chord grouping turns them into model events.
type rawNote struct {
	channel   uint8
	startTick uint32
	endTick   uint32
	pitch     uint8
	velocity  uint8
}

// rawPedal is a closed sustain window. endTick == startTick is legal (an
// instantaneous tap, or an unmatched release kept as a zero-length window).
type rawPedal struct {
	channel   uint8
	startTick uint32
	endTick   uint32
	value     uint8
}

type noteKey struct {
	channel uint8
	pitch   uint8
}

type openNote struct {
	tick     uint32
	velocity uint8
}

type openPedal struct {
	tick  uint32
	value uint8
}

// reconstructor replays one track's messages at absolute ticks into closed
// intervals. Note-ons queue per (channel, pitch) so overlapping same-pitch
// retriggers pair correctly; note-offs pop the oldest entry. Each channel
// holds at most one open sustain window.
type reconstructor struct {
	open     map[noteKey][]openNote
	pedals   map[uint8]*openPedal
	notes    []rawNote
	pedalsCl []rawPedal
	lastTick uint32
}

func newReconstructor() *reconstructor {
	return &reconstructor{
		open:   make(map[noteKey][]openNote),
		pedals: make(map[uint8]*openPedal),
	}
}

func (r *reconstructor) advance(tick uint32) {
	if tick > r.lastTick {
		r.lastTick = tick
	}
}

func (r *reconstructor) noteOn(tick uint32, channel, pitch, velocity uint8) {
	r.advance(tick)
	if velocity == 0 {
		r.noteOff(tick, channel, pitch)
		return
	}
	key := noteKey{channel: channel, pitch: pitch}
	r.open[key] = append(r.open[key], openNote{tick: tick, velocity: velocity})
}

func (r *reconstructor) noteOff(tick uint32, channel, pitch uint8) {
	r.advance(tick)
	key := noteKey{channel: channel, pitch: pitch}
	queue := r.open[key]
	if len(queue) == 0 {
		// unmatched note-off, nothing to close
		return
	}
	oldest := queue[0]
	r.open[key] = queue[1:]
	r.closeNote(channel, pitch, oldest, tick)
}

func (r *reconstructor) closeNote(channel, pitch uint8, on openNote, end uint32) {
	if end <= on.tick {
		// degenerate interval, dropped
		return
	}
	r.notes = append(r.notes, rawNote{
		channel:   channel,
		startTick: on.tick,
		endTick:   end,
		pitch:     pitch,
		velocity:  on.velocity,
	})
}

func (r *reconstructor) sustain(tick uint32, channel, value uint8) {
	r.advance(tick)
	if value > 0 {
		if r.pedals[channel] == nil {
			r.pedals[channel] = &openPedal{tick: tick, value: value}
		}
		// a press while the window is open is ignored, no nesting
		return
	}

	window := r.pedals[channel]
	if window == nil {
		// unmatched release kept as a zero-length window
		r.pedalsCl = append(r.pedalsCl, rawPedal{channel: channel, startTick: tick, endTick: tick})
		return
	}
	r.pedals[channel] = nil
	r.pedalsCl = append(r.pedalsCl, rawPedal{
		channel:   channel,
		startTick: window.tick,
		endTick:   tick,
		value:     window.value,
	})
}

// finish force-closes everything still open at the last reached tick.
// Best-effort: degenerate notes created this way are dropped silently.
func (r *reconstructor) finish() {
	keys := make([]noteKey, 0, len(r.open))
	for key := range r.open {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].channel != keys[j].channel {
			return keys[i].channel < keys[j].channel
		}
		return keys[i].pitch < keys[j].pitch
	})
	for _, key := range keys {
		for _, on := range r.open[key] {
			r.closeNote(key.channel, key.pitch, on, r.lastTick)
		}
		delete(r.open, key)
	}

	channels := make([]uint8, 0, len(r.pedals))
	for ch, window := range r.pedals {
		if window != nil {
			channels = append(channels, ch)
		}
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	for _, ch := range channels {
		window := r.pedals[ch]
		r.pedalsCl = append(r.pedalsCl, rawPedal{
			channel:   ch,
			startTick: window.tick,
			endTick:   r.lastTick,
			value:     window.value,
		})
		r.pedals[ch] = nil
	}
}

// replayTrack runs one SMF track through a fresh reconstructor and returns
// its closed intervals. Channel labels and conductor data are collected by
// the caller, which also owns cross-track assembly.
func replayTrack(track smf.Track) (notes []rawNote, pedals []rawPedal) {
	r := newReconstructor()
	var absTick uint32
	for _, ev := range track {
		absTick += ev.Delta
		var channel, key, velocity, cc, value uint8
		switch {
		case ev.Message.GetNoteOn(&channel, &key, &velocity):
			r.noteOn(absTick, channel, key, velocity)
		case ev.Message.GetNoteOff(&channel, &key, &velocity):
			r.noteOff(absTick, channel, key)
		case ev.Message.GetControlChange(&channel, &cc, &value):
			if cc == ccSustain {
				r.sustain(absTick, channel, value)
			}
		default:
			r.advance(absTick)
		}
	}
	r.finish()
	return r.notes, r.pedalsCl
}
