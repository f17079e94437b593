// Package preview renders a composition as a piano-roll PNG: time on the X
// axis in beats, pitch on the Y axis, one rounded rectangle per sounding
// pitch, pedal windows as a translucent underlay.
package preview

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/etude-works/etude-api/internal/models"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// Options controls the rendered image. Zero values fall back to defaults.
type Options struct {
	Width  int
	Height int
}

const (
	defaultWidth  = 1200
	defaultHeight = 400
	minWidth      = 200
	minHeight     = 100
	maxWidth      = 4096
	maxHeight     = 4096

	marginLeft   = 48.0
	marginRight  = 16.0
	marginTop    = 24.0
	marginBottom = 28.0

	noteCornerRadius = 2.0
	minPitchSpan     = 24
	labelFontSize    = 11.0
	titleFontSize    = 13.0
)

type rollColor struct {
	r, g, b float64
}

var trackColors = []rollColor{
	{0.30, 0.65, 0.95},
	{0.95, 0.55, 0.20},
	{0.35, 0.80, 0.45},
	{0.90, 0.40, 0.55},
	{0.70, 0.55, 0.90},
	{0.85, 0.75, 0.25},
}

func colorFor(track int) rollColor {
	return trackColors[track%len(trackColors)]
}

func clampDimension(v, def, min, max int) int {
	if v <= 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func darker(c rollColor) rollColor {
	const d = 0.6
	return rollColor{c.r * d, c.g * d, c.b * d}
}

var (
	fontOnce sync.Once
	baseFont *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		baseFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return baseFont, fontErr
}

// Render draws the composition and returns the encoded PNG. A composition
// without notes still renders as an empty grid.
func Render(c *models.Composition, opts Options) ([]byte, error) {
	width := clampDimension(opts.Width, defaultWidth, minWidth, maxWidth)
	height := clampDimension(opts.Height, defaultHeight, minHeight, maxHeight)

	font, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load label font: %w", err)
	}

	layout := newLayout(c, width, height)
	dc := gg.NewContext(width, height)

	dc.SetRGB(0.12, 0.12, 0.14)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: labelFontSize}))
	drawGrid(dc, c, layout)
	drawPedals(dc, c, layout)
	drawNotes(dc, c, layout)

	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: titleFontSize}))
	drawHeading(dc, c, layout)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// layout maps beats and pitches onto the plot rectangle.
type layout struct {
	plotX, plotY float64
	plotW, plotH float64
	totalBeats   float64
	minPitch     int
	maxPitch     int
	rowH         float64
}

func newLayout(c *models.Composition, width, height int) layout {
	l := layout{
		plotX: marginLeft,
		plotY: marginTop,
		plotW: float64(width) - marginLeft - marginRight,
		plotH: float64(height) - marginTop - marginBottom,
	}

	l.totalBeats = c.LastEventEnd()
	if l.totalBeats < 4 {
		l.totalBeats = 4
	}

	l.minPitch, l.maxPitch = pitchRange(c)
	l.rowH = l.plotH / float64(l.maxPitch-l.minPitch+1)
	return l
}

func pitchRange(c *models.Composition) (int, int) {
	lo, hi := 128, -1
	for _, tr := range c.Tracks {
		for _, n := range tr.Notes() {
			for _, p := range n.Pitches {
				if p < lo {
					lo = p
				}
				if p > hi {
					hi = p
				}
			}
		}
	}
	if hi < 0 {
		return 48, 72
	}

	lo -= 2
	hi += 2
	for hi-lo < minPitchSpan {
		lo--
		hi++
	}
	if lo < 0 {
		lo = 0
	}
	if hi > 127 {
		hi = 127
	}
	return lo, hi
}

func (l layout) xOf(beat float64) float64 {
	return l.plotX + beat/l.totalBeats*l.plotW
}

func (l layout) yOf(pitch int) float64 {
	return l.plotY + float64(l.maxPitch-pitch)*l.rowH
}

func drawGrid(dc *gg.Context, c *models.Composition, l layout) {
	// Faint row guides with labels on every C.
	for p := l.minPitch; p <= l.maxPitch; p++ {
		if p%12 != 0 {
			continue
		}
		y := l.yOf(p) + l.rowH/2
		dc.SetRGBA(1, 1, 1, 0.08)
		dc.SetLineWidth(1)
		dc.DrawLine(l.plotX, y, l.plotX+l.plotW, y)
		dc.Stroke()

		dc.SetRGBA(1, 1, 1, 0.45)
		dc.DrawStringAnchored(models.NoteName(p), l.plotX-6, y, 1, 0.35)
	}

	// One line per beat, a stronger one per bar.
	for beat := 1; float64(beat) < l.totalBeats; beat++ {
		x := l.xOf(float64(beat))
		dc.SetRGBA(1, 1, 1, 0.05)
		dc.SetLineWidth(0.5)
		dc.DrawLine(x, l.plotY, x, l.plotY+l.plotH)
		dc.Stroke()
	}

	beatsPerBar := c.TimeSignature.BeatsPerBar()
	if beatsPerBar <= 0 {
		beatsPerBar = 4
	}
	barCount := int(math.Ceil(l.totalBeats / beatsPerBar))

	labelStep := 1
	for l.plotW/float64(barCount)*float64(labelStep) < 40 {
		labelStep *= 2
	}

	for bar := 0; bar <= barCount; bar++ {
		beat := float64(bar) * beatsPerBar
		if beat > l.totalBeats {
			break
		}
		x := l.xOf(beat)
		dc.SetRGBA(1, 1, 1, 0.16)
		dc.SetLineWidth(1)
		dc.DrawLine(x, l.plotY, x, l.plotY+l.plotH)
		dc.Stroke()

		if bar%labelStep == 0 {
			dc.SetRGBA(1, 1, 1, 0.45)
			dc.DrawStringAnchored(fmt.Sprintf("%d", bar+1), x+2, l.plotY+l.plotH+4, 0, 1)
		}
	}
}

func drawPedals(dc *gg.Context, c *models.Composition, l layout) {
	for ti, tr := range c.Tracks {
		col := colorFor(ti)
		for _, p := range tr.Pedals() {
			x := l.xOf(p.Start)
			w := l.xOf(p.End()) - x
			if w < 1 {
				w = 1
			}
			dc.SetRGBA(col.r, col.g, col.b, 0.10)
			dc.DrawRectangle(x, l.plotY, w, l.plotH)
			dc.Fill()
		}
	}
}

func drawNotes(dc *gg.Context, c *models.Composition, l layout) {
	noteH := l.rowH * 0.85
	if noteH < 2 {
		noteH = 2
	}
	if noteH > 12 {
		noteH = 12
	}

	for ti, tr := range c.Tracks {
		col := colorFor(ti)
		edge := darker(col)
		for _, n := range tr.Notes() {
			x := l.xOf(n.Start)
			w := l.xOf(n.End()) - x
			if w < 2 {
				w = 2
			}
			for _, p := range n.Pitches {
				if p < l.minPitch || p > l.maxPitch {
					continue
				}
				y := l.yOf(p) + (l.rowH-noteH)/2
				dc.DrawRoundedRectangle(x, y, w, noteH, noteCornerRadius)
				dc.SetRGB(col.r, col.g, col.b)
				dc.FillPreserve()
				dc.SetRGB(edge.r, edge.g, edge.b)
				dc.SetLineWidth(1)
				dc.Stroke()
			}
		}
	}
}

func drawHeading(dc *gg.Context, c *models.Composition, l layout) {
	title := c.Title
	if title == "" {
		title = "Untitled"
	}
	dc.SetRGBA(1, 1, 1, 0.8)
	dc.DrawStringAnchored(title, l.plotX, marginTop-10, 0, 0.5)

	meta := fmt.Sprintf("%g BPM  %d/%d", c.BPM, c.TimeSignature.Numerator, c.TimeSignature.Denominator)
	if c.KeySignature != "" {
		meta += "  " + c.KeySignature
	}
	dc.SetRGBA(1, 1, 1, 0.55)
	dc.DrawStringAnchored(meta, l.plotX+l.plotW, marginTop-10, 1, 0.5)
}
