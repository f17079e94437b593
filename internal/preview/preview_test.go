package preview

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/etude-works/etude-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func previewPiece() *models.Composition {
	return &models.Composition{
		Title:         "Preview Test",
		BPM:           96,
		TimeSignature: models.TimeSignature{Numerator: 4, Denominator: 4},
		KeySignature:  "C",
		PPQ:           480,
		Tracks: []models.Track{
			{
				Name:    "Right Hand",
				Channel: 0,
				Events: []models.Event{
					models.NoteEvent{Start: 0, Duration: 1, Pitches: []int{72}, Velocity: 80},
					models.NoteEvent{Start: 1, Duration: 1, Pitches: []int{76}, Velocity: 75},
					models.NoteEvent{Start: 2, Duration: 2, Pitches: []int{72, 76, 79}, Velocity: 85},
				},
			},
			{
				Name:    "Left Hand",
				Channel: 1,
				Events: []models.Event{
					models.NoteEvent{Start: 0, Duration: 2, Pitches: []int{48, 55}, Velocity: 70},
					models.NoteEvent{Start: 2, Duration: 2, Pitches: []int{43}, Velocity: 70},
					models.PedalEvent{Start: 0, Duration: 2, Value: 127},
					models.PedalEvent{Start: 2, Duration: 2, Value: 127},
				},
			},
		},
	}
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestRenderDefaultSize(t *testing.T) {
	data, err := Render(previewPiece(), Options{})
	require.NoError(t, err)

	img := decodePNG(t, data)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestRenderCustomSize(t *testing.T) {
	data, err := Render(previewPiece(), Options{Width: 640, Height: 320})
	require.NoError(t, err)

	img := decodePNG(t, data)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 320, img.Bounds().Dy())
}

func TestRenderClampsDegenerateSize(t *testing.T) {
	data, err := Render(previewPiece(), Options{Width: 10, Height: 5})
	require.NoError(t, err)

	img := decodePNG(t, data)
	assert.Equal(t, minWidth, img.Bounds().Dx())
	assert.Equal(t, minHeight, img.Bounds().Dy())
}

func TestRenderEmptyComposition(t *testing.T) {
	c := &models.Composition{
		BPM:           120,
		TimeSignature: models.TimeSignature{Numerator: 4, Denominator: 4},
		PPQ:           480,
		Tracks:        []models.Track{{Name: "Piano"}},
	}

	data, err := Render(c, Options{Width: 400, Height: 200})
	require.NoError(t, err)
	decodePNG(t, data)
}

func TestRenderNotesShowUp(t *testing.T) {
	empty := &models.Composition{
		BPM:           96,
		TimeSignature: models.TimeSignature{Numerator: 4, Denominator: 4},
		PPQ:           480,
		Tracks:        []models.Track{{Name: "Piano"}},
	}

	blank, err := Render(empty, Options{Width: 400, Height: 200})
	require.NoError(t, err)
	withNotes, err := Render(previewPiece(), Options{Width: 400, Height: 200})
	require.NoError(t, err)

	assert.NotEqual(t, blank, withNotes)
	assert.Greater(t, distinctColors(t, withNotes), distinctColors(t, blank))
}

// distinctColors counts unique colors, a cheap proxy for "something beyond
// the grid was drawn".
func distinctColors(t *testing.T, data []byte) int {
	t.Helper()
	img := decodePNG(t, data)
	seen := make(map[[4]uint32]bool)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			seen[[4]uint32{r, g, bl, a}] = true
		}
	}
	return len(seen)
}
