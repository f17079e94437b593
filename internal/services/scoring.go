package services

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/etude-works/etude-api/internal/analysis"
	"github.com/etude-works/etude-api/internal/models"
	"gorm.io/gorm"
)

// Metric names shared between score reports and their JSON wire form.
const (
	metricNoteDensity     = "note_density"
	metricSilenceRatio    = "silence_ratio"
	metricPedalCoverage   = "pedal_coverage"
	metricRhythmicEntropy = "rhythmic_entropy"
	metricMelodicEntropy  = "melodic_entropy"
)

var scoredMetrics = []string{
	metricNoteDensity,
	metricSilenceRatio,
	metricPedalCoverage,
	metricRhythmicEntropy,
	metricMelodicEntropy,
}

const (
	// minCorpusSize is the smallest reference corpus worth estimating a
	// distribution from; below it scoring falls back to heuristic bands.
	minCorpusSize = 3

	// maxZ caps how far a single metric can pull the score down.
	maxZ = 3.0

	scoreEpsilon = 1e-9
)

// ScoringService rates a composition against the stored reference corpus and
// manages that corpus.
type ScoringService struct {
	db *gorm.DB
}

func NewScoringService(db *gorm.DB) *ScoringService {
	return &ScoringService{db: db}
}

// ScoreReport is the result of scoring one composition.
type ScoreReport struct {
	Score      float64       `json:"score"`      // 0..100
	Method     string        `json:"method"`     // "corpus" or "heuristic"
	References int           `json:"references"` // corpus size at scoring time
	Metrics    []MetricScore `json:"metrics"`
}

// MetricScore is one metric's contribution to the overall score. Corpus
// fields are present only for corpus-based scoring.
type MetricScore struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	CorpusMean   float64 `json:"corpus_mean,omitempty"`
	CorpusStddev float64 `json:"corpus_stddev,omitempty"`
	ZScore       float64 `json:"z_score,omitempty"`
	Contribution float64 `json:"contribution"` // 0..1, 1 = indistinguishable from corpus
}

// Score rates the analyzed composition. With at least minCorpusSize stored
// references each metric is z-scored against the corpus distribution and
// mapped linearly to a 0..1 contribution (0 at maxZ standard deviations);
// otherwise fixed plausibility bands stand in for the distribution.
func (s *ScoringService) Score(report *analysis.Report) (*ScoreReport, error) {
	values := metricVector(report)

	corpus, err := s.loadCorpus()
	if err != nil {
		return nil, fmt.Errorf("failed to load reference corpus: %w", err)
	}

	if len(corpus) < minCorpusSize {
		return heuristicScore(values, len(corpus)), nil
	}
	return corpusScore(values, corpus), nil
}

// StoreReference adds a composition to the scoring corpus, storing its
// canonical document and analysis. An already-stored piece is promoted to
// reference rather than duplicated.
func (s *ScoringService) StoreReference(c *models.Composition, source string) (*models.Piece, *analysis.Report, error) {
	return storePiece(s.db, c, source, "", true)
}

// ListReferences returns the pieces currently in the scoring corpus.
func (s *ScoringService) ListReferences() ([]models.Piece, error) {
	var pieces []models.Piece
	if err := s.db.Where("reference = ?", true).Order("id").Find(&pieces).Error; err != nil {
		return nil, err
	}
	return pieces, nil
}

// loadCorpus reads the stored analysis reports of all reference pieces.
// Reports that no longer unmarshal are skipped, not fatal.
func (s *ScoringService) loadCorpus() ([]map[string]float64, error) {
	var records []models.AnalysisRecord
	err := s.db.
		Joins("JOIN pieces ON pieces.id = analysis_records.piece_id").
		Where("pieces.reference = ? AND pieces.deleted_at IS NULL", true).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	vectors := make([]map[string]float64, 0, len(records))
	for _, rec := range records {
		var r analysis.Report
		if err := json.Unmarshal([]byte(rec.Report), &r); err != nil {
			continue
		}
		vectors = append(vectors, metricVector(&r))
	}
	return vectors, nil
}

// metricVector flattens a report to composition-level metrics. Per-part
// values are weighted by note count so a sparse accompaniment track does not
// drown out the main voice. Metrics a report cannot supply are absent rather
// than zero.
func metricVector(r *analysis.Report) map[string]float64 {
	sums := make(map[string]float64)
	weights := make(map[string]float64)
	add := func(name string, value, weight float64) {
		sums[name] += value * weight
		weights[name] += weight
	}

	for _, p := range r.Parts {
		if p.NoteCount == 0 {
			continue
		}
		w := float64(p.NoteCount)
		if p.NoteDensity != nil {
			add(metricNoteDensity, *p.NoteDensity, w)
		}
		if p.SilenceRatio != nil {
			add(metricSilenceRatio, *p.SilenceRatio, w)
		}
		if p.PedalCoverage != nil {
			add(metricPedalCoverage, *p.PedalCoverage, w)
		}
		add(metricRhythmicEntropy, p.RhythmicEntropy, w)
		add(metricMelodicEntropy, p.MelodicEntropy, w)
	}

	out := make(map[string]float64, len(sums))
	for name, sum := range sums {
		out[name] = sum / weights[name]
	}
	return out
}

func corpusScore(values map[string]float64, corpus []map[string]float64) *ScoreReport {
	report := &ScoreReport{Method: "corpus", References: len(corpus)}

	var total float64
	var scored int
	for _, name := range scoredMetrics {
		value, ok := values[name]
		if !ok {
			continue
		}
		mean, stddev, n := corpusStats(corpus, name)
		if n == 0 {
			continue
		}

		var z float64
		if stddev > scoreEpsilon {
			z = (value - mean) / stddev
		} else if math.Abs(value-mean) > scoreEpsilon {
			z = maxZ
		}

		contribution := 1 - math.Min(math.Abs(z), maxZ)/maxZ
		report.Metrics = append(report.Metrics, MetricScore{
			Name:         name,
			Value:        value,
			CorpusMean:   mean,
			CorpusStddev: stddev,
			ZScore:       z,
			Contribution: contribution,
		})
		total += contribution
		scored++
	}

	if scored > 0 {
		report.Score = roundScore(100 * total / float64(scored))
	}
	return report
}

// corpusStats returns mean and population standard deviation of one metric
// across the corpus vectors that carry it.
func corpusStats(corpus []map[string]float64, name string) (mean, stddev float64, n int) {
	var sum float64
	for _, vec := range corpus {
		if v, ok := vec[name]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(n)

	var sq float64
	for _, vec := range corpus {
		if v, ok := vec[name]; ok {
			d := v - mean
			sq += d * d
		}
	}
	stddev = math.Sqrt(sq / float64(n))
	return mean, stddev, n
}

// heuristicBands are plausibility windows for a solo piano texture, used when
// the corpus is too small: {zero below, full credit from, full credit to,
// zero above}.
var heuristicBands = map[string][4]float64{
	metricNoteDensity:     {0.5, 2, 10, 20},
	metricSilenceRatio:    {-1, 0, 0.25, 0.7},
	metricPedalCoverage:   {-1, 0, 0.8, 0.98},
	metricRhythmicEntropy: {-0.5, 0.3, 2.6, 3.3},
	metricMelodicEntropy:  {-0.5, 0.5, 2.8, 3.3},
}

func heuristicScore(values map[string]float64, references int) *ScoreReport {
	report := &ScoreReport{Method: "heuristic", References: references}

	var total float64
	var scored int
	for _, name := range scoredMetrics {
		value, ok := values[name]
		if !ok {
			continue
		}
		band := heuristicBands[name]
		contribution := trapezoid(value, band[0], band[1], band[2], band[3])
		report.Metrics = append(report.Metrics, MetricScore{
			Name:         name,
			Value:        value,
			Contribution: contribution,
		})
		total += contribution
		scored++
	}

	if scored > 0 {
		report.Score = roundScore(100 * total / float64(scored))
	}
	return report
}

// trapezoid ramps 0→1 over [lo0,lo1], holds 1 over [lo1,hi1] and ramps back
// to 0 over [hi1,hi0].
func trapezoid(x, lo0, lo1, hi1, hi0 float64) float64 {
	switch {
	case x <= lo0 || x >= hi0:
		return 0
	case x < lo1:
		return (x - lo0) / (lo1 - lo0)
	case x <= hi1:
		return 1
	default:
		return (hi0 - x) / (hi0 - hi1)
	}
}

func roundScore(x float64) float64 {
	return math.Round(x*10) / 10
}
