package services

import (
	"testing"

	"github.com/etude-works/etude-api/internal/analysis"
	"github.com/etude-works/etude-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCorpus(t *testing.T, svc *ScoringService, titles ...string) {
	t.Helper()
	for _, title := range titles {
		_, _, err := svc.StoreReference(texturedPiece(title), models.PieceSourceImported)
		require.NoError(t, err)
	}
}

func TestScoreHeuristicWhenCorpusTooSmall(t *testing.T) {
	svc := NewScoringService(newTestDB(t))
	seedCorpus(t, svc, "Only One", "And Two")

	report, err := svc.Score(analysis.Analyze(texturedPiece("Candidate")))
	require.NoError(t, err)

	assert.Equal(t, "heuristic", report.Method)
	assert.Equal(t, 2, report.References)
	assert.NotEmpty(t, report.Metrics)
	assert.GreaterOrEqual(t, report.Score, 0.0)
	assert.LessOrEqual(t, report.Score, 100.0)
}

func TestScoreAgainstCorpus(t *testing.T) {
	svc := NewScoringService(newTestDB(t))
	seedCorpus(t, svc, "Ref A", "Ref B", "Ref C")

	// Identical texture to the corpus: every metric sits on the mean.
	match, err := svc.Score(analysis.Analyze(texturedPiece("Candidate")))
	require.NoError(t, err)
	assert.Equal(t, "corpus", match.Method)
	assert.Equal(t, 3, match.References)
	assert.InDelta(t, 100.0, match.Score, 0.01)

	// A bare mechanical line deviates on every metric.
	outlier, err := svc.Score(analysis.Analyze(simplePiece("Outlier", 60, 60, 60, 60)))
	require.NoError(t, err)
	assert.Equal(t, "corpus", outlier.Method)
	assert.Less(t, outlier.Score, match.Score)
}

func TestScorePerMetricContributions(t *testing.T) {
	svc := NewScoringService(newTestDB(t))
	seedCorpus(t, svc, "Ref A", "Ref B", "Ref C")

	report, err := svc.Score(analysis.Analyze(texturedPiece("Candidate")))
	require.NoError(t, err)

	names := make(map[string]bool, len(report.Metrics))
	for _, m := range report.Metrics {
		names[m.Name] = true
		assert.GreaterOrEqual(t, m.Contribution, 0.0)
		assert.LessOrEqual(t, m.Contribution, 1.0)
	}
	assert.True(t, names[metricNoteDensity])
	assert.True(t, names[metricPedalCoverage])
	assert.True(t, names[metricRhythmicEntropy])
}

func TestListReferences(t *testing.T) {
	db := newTestDB(t)
	svc := NewScoringService(db)
	seedCorpus(t, svc, "Ref A", "Ref B")

	// A non-reference piece must not show up.
	_, _, err := storePiece(db, texturedPiece("Not a ref"), models.PieceSourceGenerated, "gpt-4o", false)
	require.NoError(t, err)

	refs, err := svc.ListReferences()
	require.NoError(t, err)
	require.Len(t, refs, 2)
	for _, p := range refs {
		assert.True(t, p.Reference)
	}
}

func TestStoreReferenceDeduplicatesOnChecksum(t *testing.T) {
	svc := NewScoringService(newTestDB(t))

	first, _, err := svc.StoreReference(texturedPiece("Same"), models.PieceSourceImported)
	require.NoError(t, err)
	second, _, err := svc.StoreReference(texturedPiece("Same"), models.PieceSourceImported)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	refs, err := svc.ListReferences()
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestStoreReferencePromotesExistingPiece(t *testing.T) {
	db := newTestDB(t)
	svc := NewScoringService(db)

	stored, _, err := storePiece(db, texturedPiece("Promote me"), models.PieceSourceGenerated, "gpt-4o", false)
	require.NoError(t, err)
	require.False(t, stored.Reference)

	promoted, _, err := svc.StoreReference(texturedPiece("Promote me"), models.PieceSourceImported)
	require.NoError(t, err)

	assert.Equal(t, stored.ID, promoted.ID)
	assert.True(t, promoted.Reference)
	assert.Equal(t, models.PieceSourceGenerated, promoted.Source)
}

func TestMetricVectorWeightsByNoteCount(t *testing.T) {
	dense := 8.0
	sparse := 2.0
	r := &analysis.Report{
		Parts: []analysis.PartReport{
			{NoteCount: 30, NoteDensity: &dense},
			{NoteCount: 10, NoteDensity: &sparse},
			{NoteCount: 0},
		},
	}

	vec := metricVector(r)
	assert.InDelta(t, 6.5, vec[metricNoteDensity], 1e-9)
}

func TestMetricVectorSkipsMissingMetrics(t *testing.T) {
	r := &analysis.Report{
		Parts: []analysis.PartReport{{NoteCount: 5}},
	}

	vec := metricVector(r)
	_, hasDensity := vec[metricNoteDensity]
	assert.False(t, hasDensity)
	assert.Contains(t, vec, metricRhythmicEntropy)
}

func TestTrapezoid(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{name: "below floor", x: 0.2, want: 0},
		{name: "on rising edge", x: 1.25, want: 0.5},
		{name: "inside band", x: 5, want: 1},
		{name: "on falling edge", x: 15, want: 0.5},
		{name: "above ceiling", x: 25, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, trapezoid(tt.x, 0.5, 2, 10, 20), 1e-9)
		})
	}
}
