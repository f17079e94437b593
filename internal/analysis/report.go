// Package analysis extracts statistical and musical features from a
// composition: key estimates, value distributions, motif and phrase
// structure, entropy and pedal metrics. Everything here is best-effort,
// since reports feed prompt construction and scoring rather than strict
// validation: sparse or missing data degrades to nulls and zeros, never to
// an error.
package analysis

import (
	"fmt"
	"math"

	"github.com/etude-works/etude-api/internal/midifile"
	"github.com/etude-works/etude-api/internal/models"
	"github.com/etude-works/etude-api/internal/timemap"
)

// Report is the full analysis of one composition.
type Report struct {
	Title           string       `json:"title"`
	BPM             float64      `json:"bpm"`
	TimeSignature   string       `json:"time_signature"`
	KeySignature    string       `json:"key_signature,omitempty"`
	PPQ             int          `json:"ppq"`
	DurationBeats   float64      `json:"duration_beats"`
	DurationSeconds float64      `json:"duration_seconds"`
	BarCount        float64      `json:"bar_count"`
	TempoChanges    int          `json:"tempo_changes"`
	Parts           []PartReport `json:"parts"`
}

// PartReport is the per-track view. Nullable fields stay null when the part
// is too sparse to support the statistic.
type PartReport struct {
	Name                 string          `json:"name"`
	Channel              int             `json:"channel"`
	NoteCount            int             `json:"note_count"`
	Key                  KeyEstimate     `json:"key"`
	ChordSizes           *Distribution   `json:"chord_sizes"`
	Velocities           *Distribution   `json:"velocities"`
	Durations            *Distribution   `json:"durations"`
	NoteDensity          *float64        `json:"note_density"`
	PedalCoverage        *float64        `json:"pedal_coverage"`
	MelodicIntervals     []IntervalCount `json:"melodic_intervals"`
	Motifs               []Motif         `json:"motifs"`
	Phrases              []Span          `json:"phrases"`
	Sections             []Span          `json:"sections"`
	SilenceRatio         *float64        `json:"silence_ratio"`
	RhythmicEntropy      float64         `json:"rhythmic_entropy"`
	MelodicEntropy       float64         `json:"melodic_entropy"`
	PhraseLengthVariance *float64        `json:"phrase_length_variance"`
	ContourVariance      *float64        `json:"contour_variance"`
}

// KeyEstimate names the most likely key. Confidence is 0..1 and scales with
// the correlation margin over the runner-up candidate.
type KeyEstimate struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Distribution summarizes a value population with nearest-rank quantiles.
type Distribution struct {
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// IntervalCount is one melodic interval (signed semitones) and how often it
// occurs.
type IntervalCount struct {
	Interval int `json:"interval"`
	Count    int `json:"count"`
}

// Motif is a recurring interval and rhythm shape. Pitches gives the absolute
// pitches of the first occurrence; Onsets lists the starting beat of every
// occurrence.
type Motif struct {
	Intervals   []int     `json:"intervals"`
	Rhythm      []float64 `json:"rhythm"`
	Pitches     []int     `json:"pitches"`
	Onsets      []float64 `json:"onsets"`
	Occurrences int       `json:"occurrences"`
}

// Span is a half-open beat interval.
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Analyze builds the full report for a composition. It never fails; a nil or
// empty composition produces a report of nulls and empty lists.
func Analyze(c *models.Composition) *Report {
	if c == nil {
		return &Report{Parts: []PartReport{}}
	}

	durationBeats := c.LastEventEnd()
	beatsPerBar := c.TimeSignature.BeatsPerBar()
	var barCount float64
	if beatsPerBar > 0 {
		barCount = durationBeats / beatsPerBar
	}

	var durationSeconds float64
	if tm, err := timemap.New(c.PPQ, midifile.TempoBreakpoints(c)); err == nil {
		lastTick := uint32(math.Round(durationBeats * float64(c.PPQ)))
		durationSeconds = tm.SecondsAt(lastTick)
	}

	r := &Report{
		Title:           c.Title,
		BPM:             c.BPM,
		TimeSignature:   fmt.Sprintf("%d/%d", c.TimeSignature.Numerator, c.TimeSignature.Denominator),
		KeySignature:    c.KeySignature,
		PPQ:             c.PPQ,
		DurationBeats:   durationBeats,
		DurationSeconds: durationSeconds,
		BarCount:        barCount,
		TempoChanges:    len(c.TempoEvents()),
		Parts:           make([]PartReport, 0, len(c.Tracks)),
	}
	for _, tr := range c.Tracks {
		r.Parts = append(r.Parts, analyzePart(tr, durationBeats, barCount))
	}
	return r
}

func analyzePart(tr models.Track, totalBeats, barCount float64) PartReport {
	notes := tr.Notes()
	melody := melodyLine(notes)
	durs := durations(notes)

	part := PartReport{
		Name:             tr.Name,
		Channel:          tr.Channel,
		NoteCount:        len(notes),
		Key:              EstimateKey(pitchClassHistogram(notes)),
		ChordSizes:       distribution(chordSizes(notes)),
		Velocities:       distribution(velocities(notes)),
		Durations:        distribution(durs),
		NoteDensity:      density(len(notes), barCount),
		PedalCoverage:    pedalCoverage(tr.Pedals(), totalBeats),
		MelodicIntervals: intervalHistogram(melody),
		Motifs:           detectMotifs(notes),
		Phrases:          detectPhrases(notes),
		Sections:         detectSections(notes),
		SilenceRatio:     silenceRatio(notes),
		RhythmicEntropy:  entropy(durs),
		MelodicEntropy:   entropy(melodyPitches(melody)),
		ContourVariance:  contourVariance(melody),
	}
	part.PhraseLengthVariance = phraseLengthVariance(part.Phrases)
	return part
}
