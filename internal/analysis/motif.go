package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/etude-works/etude-api/internal/models"
)

const (
	motifMinWindow      = 3
	motifMaxWindow      = 8
	motifMinOccurrences = 3
	motifKeep           = 5
)

type motifCandidate struct {
	intervals []int
	rhythm    []float64
	pitches   []int
	onsets    []float64
	window    int
}

// detectMotifs slides windows of 3..8 notes over the onset-ordered sequence
// and fingerprints each window by its interval sequence and rhythm
// signature. The rhythm signature divides every duration by the window
// minimum, so the same figure matches at any tempo or note scale. A shape
// qualifies as a motif once it occurs at least three times; the five most
// frequent are reported with the absolute pitches of their first occurrence.
func detectMotifs(notes []models.NoteEvent) []Motif {
	out := []Motif{}
	if len(notes) < motifMinWindow {
		return out
	}

	found := make(map[string]*motifCandidate)
	for w := motifMinWindow; w <= motifMaxWindow && w <= len(notes); w++ {
		for i := 0; i+w <= len(notes); i++ {
			win := notes[i : i+w]

			pitches := make([]int, 0, w)
			intervals := make([]int, 0, w-1)
			minDur := win[0].Duration
			for j, n := range win {
				top := n.Pitches[len(n.Pitches)-1]
				pitches = append(pitches, top)
				if j > 0 {
					intervals = append(intervals, top-pitches[j-1])
				}
				if n.Duration < minDur {
					minDur = n.Duration
				}
			}
			rhythm := make([]float64, 0, w)
			for _, n := range win {
				rhythm = append(rhythm, math.Round(n.Duration/minDur*100)/100)
			}

			key := fmt.Sprintf("%v|%v", intervals, rhythm)
			cand := found[key]
			if cand == nil {
				cand = &motifCandidate{
					intervals: intervals,
					rhythm:    rhythm,
					pitches:   pitches,
					window:    w,
				}
				found[key] = cand
			}
			cand.onsets = append(cand.onsets, win[0].Start)
		}
	}

	qualified := make([]*motifCandidate, 0)
	for _, cand := range found {
		if len(cand.onsets) >= motifMinOccurrences {
			qualified = append(qualified, cand)
		}
	}
	sort.Slice(qualified, func(i, j int) bool {
		a, b := qualified[i], qualified[j]
		if len(a.onsets) != len(b.onsets) {
			return len(a.onsets) > len(b.onsets)
		}
		if a.onsets[0] != b.onsets[0] {
			return a.onsets[0] < b.onsets[0]
		}
		return a.window < b.window
	})
	if len(qualified) > motifKeep {
		qualified = qualified[:motifKeep]
	}

	for _, cand := range qualified {
		out = append(out, Motif{
			Intervals:   cand.intervals,
			Rhythm:      cand.rhythm,
			Pitches:     cand.pitches,
			Onsets:      cand.onsets,
			Occurrences: len(cand.onsets),
		})
	}
	return out
}
