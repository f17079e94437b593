// Package timemap converts between MIDI ticks, musical beats and wall-clock
// seconds for a fixed ticks-per-quarter resolution and an ordered list of
// tempo breakpoints.
package timemap

import (
	"fmt"
	"sort"
)

// DefaultBPM is the tempo assumed at tick 0 when a file carries no tempo event.
const DefaultBPM = 120.0

// Breakpoint marks a tempo change taking effect at an absolute tick.
type Breakpoint struct {
	Tick uint32
	BPM  float64
}

// Map holds the tempo timeline of one composition. Breakpoints are sorted by
// tick and unique; the first breakpoint is always at tick 0.
type Map struct {
	ppq    int
	points []Breakpoint
}

// New builds a Map from an unordered breakpoint list. Breakpoints sharing a
// tick collapse to the one given last. A breakpoint with a non-positive BPM
// is dropped. If no breakpoint covers tick 0, DefaultBPM is assumed there.
func New(ppq int, points []Breakpoint) (*Map, error) {
	if ppq <= 0 {
		return nil, fmt.Errorf("timemap: ppq must be positive, got %d", ppq)
	}

	byTick := make(map[uint32]float64, len(points))
	for _, p := range points {
		if p.BPM <= 0 {
			continue
		}
		byTick[p.Tick] = p.BPM
	}
	if _, ok := byTick[0]; !ok {
		byTick[0] = DefaultBPM
	}

	sorted := make([]Breakpoint, 0, len(byTick))
	for tick, bpm := range byTick {
		sorted = append(sorted, Breakpoint{Tick: tick, BPM: bpm})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tick < sorted[j].Tick })

	return &Map{ppq: ppq, points: sorted}, nil
}

// PPQ returns the resolution in ticks per quarter note.
func (m *Map) PPQ() int {
	return m.ppq
}

// Breakpoints returns the normalized breakpoint list in tick order.
func (m *Map) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, len(m.points))
	copy(out, m.points)
	return out
}

// BPMAt returns the tempo in force at the given tick.
func (m *Map) BPMAt(tick uint32) float64 {
	bpm := m.points[0].BPM
	for _, p := range m.points {
		if p.Tick > tick {
			break
		}
		bpm = p.BPM
	}
	return bpm
}

// BeatsAt converts an absolute tick to beats from the start.
func (m *Map) BeatsAt(tick uint32) float64 {
	return float64(tick) / float64(m.ppq)
}

// SecondsAt converts an absolute tick to elapsed seconds, integrating
// 60*beats/bpm across each tempo segment the tick spans.
func (m *Map) SecondsAt(tick uint32) float64 {
	var secs float64
	for i, p := range m.points {
		if p.Tick >= tick {
			break
		}
		segEnd := tick
		if i+1 < len(m.points) && m.points[i+1].Tick < tick {
			segEnd = m.points[i+1].Tick
		}
		beats := float64(segEnd-p.Tick) / float64(m.ppq)
		secs += 60.0 * beats / p.BPM
	}
	return secs
}
