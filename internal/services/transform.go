package services

import (
	"fmt"

	"github.com/etude-works/etude-api/internal/models"
)

// maxTransposeSemitones bounds transposition to four octaves either way;
// larger shifts push everything outside the MIDI range anyway.
const maxTransposeSemitones = 48

// TransformService exposes the pitch and pedal transforms as operations with
// request validation. Transforms never mutate their input.
type TransformService struct{}

func NewTransformService() *TransformService {
	return &TransformService{}
}

// Transpose shifts a composition by the given number of semitones. Pitches
// leaving the MIDI range are dropped; shifting so far that no notes survive
// is reported as an error rather than returned as an empty piece.
func (s *TransformService) Transpose(c *models.Composition, semitones int) (*models.Composition, error) {
	if semitones < -maxTransposeSemitones || semitones > maxTransposeSemitones {
		return nil, fmt.Errorf("semitones must be between %d and %d, got %d",
			-maxTransposeSemitones, maxTransposeSemitones, semitones)
	}

	out := c.Transpose(semitones)
	if noteCount(c) > 0 && noteCount(out) == 0 {
		return nil, fmt.Errorf("transposing by %d semitones drops every note", semitones)
	}
	return out, nil
}

// RepairPedals clips overlapping sustain windows so each pedal release lands
// no later than the next press.
func (s *TransformService) RepairPedals(c *models.Composition) *models.Composition {
	return c.RepairPedals()
}

func noteCount(c *models.Composition) int {
	total := 0
	for _, tr := range c.Tracks {
		total += len(tr.Notes())
	}
	return total
}
