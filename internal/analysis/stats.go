package analysis

import (
	"math"
	"sort"

	"github.com/etude-works/etude-api/internal/models"
)

func chordSizes(notes []models.NoteEvent) []float64 {
	out := make([]float64, 0, len(notes))
	for _, n := range notes {
		out = append(out, float64(len(n.Pitches)))
	}
	return out
}

func velocities(notes []models.NoteEvent) []float64 {
	out := make([]float64, 0, len(notes))
	for _, n := range notes {
		out = append(out, float64(n.Velocity))
	}
	return out
}

func durations(notes []models.NoteEvent) []float64 {
	out := make([]float64, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Duration)
	}
	return out
}

func distribution(values []float64) *Distribution {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return &Distribution{
		Min:    sorted[0],
		P25:    nearestRank(sorted, 0.25),
		Median: nearestRank(sorted, 0.5),
		Mean:   sum / float64(len(sorted)),
		P75:    nearestRank(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
}

func nearestRank(sorted []float64, q float64) float64 {
	idx := int(math.Round(float64(len(sorted)-1) * q))
	return sorted[idx]
}

func density(count int, barCount float64) *float64 {
	if barCount <= 0 {
		return nil
	}
	d := float64(count) / barCount
	return &d
}

// pedalCoverage merges overlapping or touching sustain windows and reports
// the fraction of the piece they cover.
func pedalCoverage(pedals []models.PedalEvent, totalBeats float64) *float64 {
	if totalBeats <= 0 {
		return nil
	}
	intervals := make([][2]float64, 0, len(pedals))
	for _, p := range pedals {
		intervals = append(intervals, [2]float64{p.Start, p.End()})
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i][0] < intervals[j][0] })

	var covered float64
	var curStart, curEnd float64
	active := false
	for _, iv := range intervals {
		if !active {
			curStart, curEnd, active = iv[0], iv[1], true
			continue
		}
		if iv[0] <= curEnd {
			if iv[1] > curEnd {
				curEnd = iv[1]
			}
			continue
		}
		covered += curEnd - curStart
		curStart, curEnd = iv[0], iv[1]
	}
	if active {
		covered += curEnd - curStart
	}

	ratio := covered / totalBeats
	return &ratio
}

type melodyNote struct {
	start float64
	pitch int
}

// melodyLine reduces note events to a single line: events sharing an onset
// collapse to their highest pitch. Notes must already be in timeline order.
func melodyLine(notes []models.NoteEvent) []melodyNote {
	var line []melodyNote
	for _, n := range notes {
		top := n.Pitches[len(n.Pitches)-1]
		if len(line) > 0 && line[len(line)-1].start == n.Start {
			if top > line[len(line)-1].pitch {
				line[len(line)-1].pitch = top
			}
			continue
		}
		line = append(line, melodyNote{start: n.Start, pitch: top})
	}
	return line
}

func melodyPitches(melody []melodyNote) []float64 {
	out := make([]float64, 0, len(melody))
	for _, m := range melody {
		out = append(out, float64(m.pitch))
	}
	return out
}

// intervalHistogram counts signed semitone steps between consecutive melody
// notes and keeps the twelve most frequent.
func intervalHistogram(melody []melodyNote) []IntervalCount {
	counts := make(map[int]int)
	for i := 1; i < len(melody); i++ {
		counts[melody[i].pitch-melody[i-1].pitch]++
	}
	out := make([]IntervalCount, 0, len(counts))
	for interval, count := range counts {
		out = append(out, IntervalCount{Interval: interval, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Interval < out[j].Interval
	})
	if len(out) > 12 {
		out = out[:12]
	}
	return out
}

func silenceRatio(notes []models.NoteEvent) *float64 {
	if len(notes) == 0 {
		return nil
	}
	var maxEnd, gaps float64
	for i, n := range notes {
		if n.End() > maxEnd {
			maxEnd = n.End()
		}
		if i > 0 {
			if gap := n.Start - notes[i-1].End(); gap > 0 {
				gaps += gap
			}
		}
	}
	span := maxEnd - notes[0].Start
	if span <= 0 {
		return nil
	}
	ratio := gaps / span
	return &ratio
}

// entropy is Shannon entropy over ten equal-width bins of the normalized
// values. Fewer than two distinct values carry no information and score 0.
func entropy(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	min, max := values[0], values[0]
	distinct := make(map[float64]bool)
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		distinct[v] = true
	}
	if len(distinct) < 2 || max == min {
		return 0
	}

	bins := make([]int, 10)
	for _, v := range values {
		bin := int((v - min) / (max - min) * 10)
		if bin > 9 {
			bin = 9
		}
		bins[bin]++
	}

	var h float64
	total := float64(len(values))
	for _, count := range bins {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		h -= p * math.Log2(p)
	}
	return h
}

// contourVariance is the fraction of adjacent melodic direction changes: 0
// for a monotone line, 1 for a strict zigzag.
func contourVariance(melody []melodyNote) *float64 {
	if len(melody) < 3 {
		return nil
	}
	dirs := make([]int, 0, len(melody)-1)
	for i := 1; i < len(melody); i++ {
		switch d := melody[i].pitch - melody[i-1].pitch; {
		case d > 0:
			dirs = append(dirs, 1)
		case d < 0:
			dirs = append(dirs, -1)
		default:
			dirs = append(dirs, 0)
		}
	}
	flips := 0
	for i := 1; i < len(dirs); i++ {
		if dirs[i] != dirs[i-1] {
			flips++
		}
	}
	v := float64(flips) / float64(len(dirs)-1)
	return &v
}

func phraseLengthVariance(phrases []Span) *float64 {
	if len(phrases) == 0 {
		return nil
	}
	var sum float64
	for _, p := range phrases {
		sum += p.End - p.Start
	}
	mean := sum / float64(len(phrases))

	var variance float64
	for _, p := range phrases {
		d := p.End - p.Start - mean
		variance += d * d
	}
	variance /= float64(len(phrases))
	return &variance
}
