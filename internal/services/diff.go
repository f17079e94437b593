package services

import (
	"fmt"
	"sort"

	"github.com/etude-works/etude-api/internal/models"
)

// DiffService compares two compositions structurally. It backs round-trip
// checks (import → export → import) and regression reports on generated
// variations.
type DiffService struct{}

func NewDiffService() *DiffService {
	return &DiffService{}
}

// DiffReport summarizes the differences between two compositions. Notes are
// keyed by (channel, start, pitches), so a note that only changed velocity or
// duration appears as unchanged; added/removed capture real structural moves.
type DiffReport struct {
	Identical bool        `json:"identical"`
	Fields    []FieldDiff `json:"fields,omitempty"`
	Tracks    Counts      `json:"tracks"`
	Events    Counts      `json:"events"`
	Notes     Counts      `json:"notes"`
	Added     []NoteDelta `json:"added,omitempty"`
	Removed   []NoteDelta `json:"removed,omitempty"`
}

// FieldDiff is one changed document-level field.
type FieldDiff struct {
	Field string      `json:"field"`
	A     interface{} `json:"a"`
	B     interface{} `json:"b"`
}

// Counts pairs a measurement taken on both sides of the diff.
type Counts struct {
	A int `json:"a"`
	B int `json:"b"`
}

// NoteDelta identifies a note present on only one side.
type NoteDelta struct {
	Channel int     `json:"channel"`
	Start   float64 `json:"start"`
	Pitches []int   `json:"pitches"`
}

// Diff compares a against b. The report is deterministic: deltas are sorted
// by start beat, then channel.
func (s *DiffService) Diff(a, b *models.Composition) *DiffReport {
	report := &DiffReport{
		Fields: fieldDiffs(a, b),
		Tracks: Counts{A: len(a.Tracks), B: len(b.Tracks)},
		Events: Counts{A: countEvents(a), B: countEvents(b)},
	}

	notesA := collectNotes(a)
	notesB := collectNotes(b)
	report.Notes = Counts{A: len(notesA), B: len(notesB)}
	report.Added, report.Removed = noteDeltas(notesA, notesB)

	report.Identical = len(report.Fields) == 0 &&
		report.Tracks.A == report.Tracks.B &&
		report.Events.A == report.Events.B &&
		len(report.Added) == 0 && len(report.Removed) == 0
	return report
}

func fieldDiffs(a, b *models.Composition) []FieldDiff {
	var diffs []FieldDiff
	if a.Title != b.Title {
		diffs = append(diffs, FieldDiff{Field: "title", A: a.Title, B: b.Title})
	}
	if a.BPM != b.BPM {
		diffs = append(diffs, FieldDiff{Field: "bpm", A: a.BPM, B: b.BPM})
	}
	if a.TimeSignature != b.TimeSignature {
		diffs = append(diffs, FieldDiff{
			Field: "time_signature",
			A:     fmt.Sprintf("%d/%d", a.TimeSignature.Numerator, a.TimeSignature.Denominator),
			B:     fmt.Sprintf("%d/%d", b.TimeSignature.Numerator, b.TimeSignature.Denominator),
		})
	}
	if a.KeySignature != b.KeySignature {
		diffs = append(diffs, FieldDiff{Field: "key_signature", A: a.KeySignature, B: b.KeySignature})
	}
	if a.PPQ != b.PPQ {
		diffs = append(diffs, FieldDiff{Field: "ppq", A: a.PPQ, B: b.PPQ})
	}
	return diffs
}

func countEvents(c *models.Composition) int {
	total := 0
	for _, tr := range c.Tracks {
		total += len(tr.Events)
	}
	return total
}

type keyedNote struct {
	key     string
	channel int
	start   float64
	pitches []int
}

func collectNotes(c *models.Composition) []keyedNote {
	var notes []keyedNote
	for _, tr := range c.Tracks {
		for _, n := range tr.Notes() {
			notes = append(notes, keyedNote{
				key:     noteKey(tr.Channel, n),
				channel: tr.Channel,
				start:   n.Start,
				pitches: n.Pitches,
			})
		}
	}
	return notes
}

func noteKey(channel int, n models.NoteEvent) string {
	return fmt.Sprintf("%d|%.6f|%v", channel, n.Start, n.Pitches)
}

// noteDeltas diffs the two note multisets: a note occurring twice on one side
// and once on the other counts as one delta.
func noteDeltas(notesA, notesB []keyedNote) (added, removed []NoteDelta) {
	countA := make(map[string]int, len(notesA))
	for _, n := range notesA {
		countA[n.key]++
	}

	for _, n := range notesB {
		if countA[n.key] > 0 {
			countA[n.key]--
			continue
		}
		added = append(added, NoteDelta{Channel: n.channel, Start: n.start, Pitches: n.pitches})
	}
	for _, n := range notesA {
		if countA[n.key] > 0 {
			countA[n.key]--
			removed = append(removed, NoteDelta{Channel: n.channel, Start: n.start, Pitches: n.pitches})
		}
	}

	sortDeltas(added)
	sortDeltas(removed)
	return added, removed
}

func sortDeltas(deltas []NoteDelta) {
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Start != deltas[j].Start {
			return deltas[i].Start < deltas[j].Start
		}
		return deltas[i].Channel < deltas[j].Channel
	})
}
