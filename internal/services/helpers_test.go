package services

import (
	"path/filepath"
	"testing"

	"github.com/etude-works/etude-api/internal/database"
	"github.com/etude-works/etude-api/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// simplePiece builds a one-track composition with one quarter note per beat.
func simplePiece(title string, pitches ...int) *models.Composition {
	tr := models.Track{Name: "Piano", Channel: 0}
	for i, p := range pitches {
		tr.Events = append(tr.Events, models.NoteEvent{
			Start:    float64(i),
			Duration: 1,
			Pitches:  []int{p},
			Velocity: 80,
		})
	}
	c := &models.Composition{
		Title:         title,
		BPM:           100,
		TimeSignature: models.TimeSignature{Numerator: 4, Denominator: 4},
		PPQ:           480,
		Tracks:        []models.Track{tr},
	}
	return c.Normalize()
}

// texturedPiece builds a composition with enough variety to light up every
// analysis metric: mixed durations and pitches, gaps, and pedal windows.
func texturedPiece(title string) *models.Composition {
	tr := models.Track{Name: "Piano", Channel: 0}
	notes := []struct {
		start, duration float64
		pitch           int
		velocity        int
	}{
		{0, 0.5, 60, 70},
		{0.5, 0.5, 64, 75},
		{1, 1, 67, 80},
		{2.5, 0.5, 65, 72},
		{3, 1, 64, 78},
		{4, 2, 60, 85},
		{6.5, 0.5, 62, 70},
		{7, 1, 60, 90},
	}
	for _, n := range notes {
		tr.Events = append(tr.Events, models.NoteEvent{
			Start:    n.start,
			Duration: n.duration,
			Pitches:  []int{n.pitch},
			Velocity: n.velocity,
		})
	}
	tr.Events = append(tr.Events,
		models.PedalEvent{Start: 0, Duration: 2, Value: 127},
		models.PedalEvent{Start: 4, Duration: 2, Value: 127},
	)
	c := &models.Composition{
		Title:         title,
		BPM:           96,
		TimeSignature: models.TimeSignature{Numerator: 4, Denominator: 4},
		KeySignature:  "C",
		PPQ:           480,
		Tracks:        []models.Track{tr},
	}
	return c.Normalize()
}
