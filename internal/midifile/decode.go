package midifile

import (
	"bytes"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/etude-works/etude-api/internal/models"
	"github.com/etude-works/etude-api/internal/timemap"
)

// channelInfo accumulates labeling collected while tracks are scanned. A
// channel becomes a model track when it carries at least one note or an
// explicit program change.
type channelInfo struct {
	name       string
	program    uint8
	hasProgram bool
	hasNotes   bool
}

type programChange struct {
	channel uint8
	program uint8
}

type marker struct {
	tick uint32
	text string
}

// trackScan is the conductor-level view of one SMF track: its label, the
// channels it touches and every meta event relevant to the model.
type trackScan struct {
	name     string
	channels []uint8
	programs []programChange
	tempos   []timemap.Breakpoint
	timeSig  *models.TimeSignature
	keySig   string
	markers  []marker
}

func scanTrack(track smf.Track) trackScan {
	var scan trackScan
	seen := make(map[uint8]bool)
	touch := func(ch uint8) {
		if !seen[ch] {
			seen[ch] = true
			scan.channels = append(scan.channels, ch)
		}
	}

	var absTick uint32
	for _, ev := range track {
		absTick += ev.Delta
		msg := ev.Message

		var (
			channel, key, velocity uint8
			cc, value, program     uint8
			numer, denom           uint8
			clocks, dsq            uint8
			bpm                    float64
			text                   string
			isMajor, isFlat        bool
		)
		switch {
		case msg.GetMetaTempo(&bpm):
			scan.tempos = append(scan.tempos, timemap.Breakpoint{Tick: absTick, BPM: bpm})
		case msg.GetMetaTimeSig(&numer, &denom, &clocks, &dsq):
			if scan.timeSig == nil {
				scan.timeSig = &models.TimeSignature{Numerator: int(numer), Denominator: int(denom)}
			}
		case msg.GetMetaKeySig(&key, &numer, &isMajor, &isFlat):
			if scan.keySig == "" {
				if name, err := models.KeySignatureFromMeta(numer, isMajor, isFlat); err == nil {
					scan.keySig = name
				}
			}
		case msg.GetMetaTrackName(&text):
			if scan.name == "" {
				scan.name = text
			}
		case msg.GetMetaMarker(&text):
			scan.markers = append(scan.markers, marker{tick: absTick, text: text})
		case msg.GetProgramChange(&channel, &program):
			scan.programs = append(scan.programs, programChange{channel: channel, program: program})
			touch(channel)
		case msg.GetNoteOn(&channel, &key, &velocity),
			msg.GetNoteOff(&channel, &key, &velocity),
			msg.GetControlChange(&channel, &cc, &value):
			touch(channel)
		}
	}
	return scan
}

// Decode parses standard MIDI bytes into the canonical composition model.
//
// Channel events are merged across SMF tracks: every channel that carries at
// least one note or program change becomes one model track, chords are
// grouped from exactly-aligned notes, sustain windows become pedal events.
// Tempo changes, markers, time and key signatures are global regardless of
// which track carried them; tempo and section events land on the first model
// track. Beat positions divide absolute ticks by the file's resolution.
func Decode(data []byte) (*models.Composition, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decode midi: empty input")
	}
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode midi: %w", err)
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("decode midi: unsupported time format %v", s.TimeFormat)
	}
	ppq := int(mt)

	var (
		allNotes  []rawNote
		allPedals []rawPedal
		tempoBPs  []timemap.Breakpoint
		markers   []marker
		title     string
		timeSig   = models.TimeSignature{Numerator: 4, Denominator: 4}
		haveSig   bool
		keySig    string
		channels  = make(map[uint8]*channelInfo)
	)
	info := func(ch uint8) *channelInfo {
		ci := channels[ch]
		if ci == nil {
			ci = &channelInfo{}
			channels[ch] = ci
		}
		return ci
	}

	for trackIdx, track := range s.Tracks {
		notes, pedals := replayTrack(track)
		allNotes = append(allNotes, notes...)
		allPedals = append(allPedals, pedals...)

		scan := scanTrack(track)
		if trackIdx == 0 && scan.name != "" {
			title = scan.name
		}
		tempoBPs = append(tempoBPs, scan.tempos...)
		markers = append(markers, scan.markers...)
		if scan.timeSig != nil && !haveSig {
			timeSig = *scan.timeSig
			haveSig = true
		}
		if scan.keySig != "" && keySig == "" {
			keySig = scan.keySig
		}
		for _, pc := range scan.programs {
			ci := info(pc.channel)
			if !ci.hasProgram {
				ci.program = pc.program
				ci.hasProgram = true
			}
		}
		if scan.name != "" {
			for _, ch := range scan.channels {
				ci := info(ch)
				if ci.name == "" {
					ci.name = scan.name
				}
			}
		}
	}

	tm, err := timemap.New(ppq, tempoBPs)
	if err != nil {
		return nil, fmt.Errorf("decode midi: %w", err)
	}

	byChannel := make(map[uint8][]models.Event)
	for _, g := range groupChords(allNotes) {
		info(g.channel).hasNotes = true
		start := tm.BeatsAt(g.startTick)
		byChannel[g.channel] = append(byChannel[g.channel], models.NoteEvent{
			Start:    start,
			Duration: tm.BeatsAt(g.endTick) - start,
			Pitches:  g.pitches,
			Velocity: int(g.velocity),
		})
	}
	for _, p := range allPedals {
		start := tm.BeatsAt(p.startTick)
		byChannel[p.channel] = append(byChannel[p.channel], models.PedalEvent{
			Start:    start,
			Duration: tm.BeatsAt(p.endTick) - start,
			Value:    int(p.value),
		})
	}

	ordered := make([]uint8, 0, len(channels))
	for ch, ci := range channels {
		if ci.hasNotes || ci.hasProgram {
			ordered = append(ordered, ch)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	tracks := make([]models.Track, 0, len(ordered))
	for _, ch := range ordered {
		ci := channels[ch]
		name := ci.name
		if name == "" {
			name = models.DefaultTrackName(int(ch))
		}
		tracks = append(tracks, models.Track{
			Name:    name,
			Channel: int(ch),
			Program: int(ci.program),
			Events:  byChannel[ch],
		})
	}
	if len(tracks) == 0 {
		tracks = append(tracks, models.Track{Name: models.DefaultTrackName(0), Channel: 0})
	}

	// Tempo changes past tick zero and markers attach to the first track.
	for _, bp := range tm.Breakpoints() {
		if bp.Tick == 0 {
			continue
		}
		tracks[0].Events = append(tracks[0].Events, models.TempoEvent{
			Start: tm.BeatsAt(bp.Tick),
			BPM:   bp.BPM,
		})
	}
	for _, m := range markers {
		tracks[0].Events = append(tracks[0].Events, models.SectionEvent{
			Start: tm.BeatsAt(m.tick),
			Name:  m.text,
		})
	}

	c := &models.Composition{
		Title:         title,
		BPM:           tm.BPMAt(0),
		TimeSignature: timeSig,
		KeySignature:  keySig,
		PPQ:           ppq,
		Tracks:        tracks,
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("decode midi: %w", err)
	}
	return c, nil
}
