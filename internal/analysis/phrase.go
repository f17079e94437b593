package analysis

import "github.com/etude-works/etude-api/internal/models"

// Gap thresholds in beats. A phrase boundary needs a medium rest after a
// held note (the cadential cue); a section boundary needs a long rest.
const (
	phraseGapMin       = 1.0
	phraseGapMax       = 4.0
	sectionGap         = 4.0
	cadenceMinDuration = 1.0
)

func detectPhrases(notes []models.NoteEvent) []Span {
	return segment(notes, func(cur models.NoteEvent, gap float64) bool {
		return gap > phraseGapMin && gap < phraseGapMax && cur.Duration >= cadenceMinDuration
	})
}

func detectSections(notes []models.NoteEvent) []Span {
	return segment(notes, func(cur models.NoteEvent, gap float64) bool {
		return gap > sectionGap
	})
}

// segment walks consecutive notes and closes a span wherever boundary fires
// on the gap between one note's end and the next note's start. The remainder
// of the piece always forms a final span, so any part with notes yields at
// least one.
func segment(notes []models.NoteEvent, boundary func(models.NoteEvent, float64) bool) []Span {
	spans := []Span{}
	if len(notes) == 0 {
		return spans
	}

	start := notes[0].Start
	for i := 1; i < len(notes); i++ {
		cur, next := notes[i-1], notes[i]
		gap := next.Start - cur.End()
		if boundary(cur, gap) {
			spans = append(spans, Span{Start: start, End: cur.End()})
			start = next.Start
		}
	}

	last := notes[0].End()
	for _, n := range notes {
		if n.End() > last {
			last = n.End()
		}
	}
	spans = append(spans, Span{Start: start, End: last})
	return spans
}
