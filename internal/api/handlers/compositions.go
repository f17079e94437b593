package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/etude-works/etude-api/internal/analysis"
	"github.com/etude-works/etude-api/internal/metrics"
	"github.com/etude-works/etude-api/internal/midifile"
	"github.com/etude-works/etude-api/internal/models"
	"github.com/etude-works/etude-api/internal/preview"
	"github.com/etude-works/etude-api/internal/services"
	"github.com/gin-gonic/gin"
)

type CompositionHandler struct {
	transform *services.TransformService
	diff      *services.DiffService
	sentry    *metrics.SentryMetrics
}

func NewCompositionHandler() *CompositionHandler {
	return &CompositionHandler{
		transform: services.NewTransformService(),
		diff:      services.NewDiffService(),
		sentry:    metrics.NewSentryMetrics(),
	}
}

// Import converts an uploaded MIDI file into the canonical document format.
// The file arrives either as multipart form data (field "file") or as the
// raw request body. With ?analyze=true the response inlines the analysis
// report next to the converted document.
func (h *CompositionHandler) Import(c *gin.Context) {
	data, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comp, err := midifile.Decode(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("invalid MIDI file: %v", err)})
		return
	}

	doc, err := comp.CanonicalJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{"composition": json.RawMessage(doc)}
	if c.Query("analyze") == "true" {
		response["analysis"] = analysis.Analyze(comp)
	}
	c.JSON(http.StatusOK, response)
}

// Export renders a canonical composition document as a standard MIDI file.
func (h *CompositionHandler) Export(c *gin.Context) {
	comp, ok := h.bindComposition(c)
	if !ok {
		return
	}

	data, err := midifile.Encode(comp)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to render MIDI: %v", err)})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(comp.Title)))
	c.Data(http.StatusOK, "audio/midi", data)
}

// Analyze accepts either a canonical JSON document or raw MIDI bytes and
// returns the full analysis report.
func (h *CompositionHandler) Analyze(c *gin.Context) {
	data, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comp, err := decodeAnyComposition(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, analysis.Analyze(comp))
}

// Preview renders a composition as a piano-roll PNG. Dimensions can be
// overridden with ?width= and ?height= query parameters.
func (h *CompositionHandler) Preview(c *gin.Context) {
	opts, err := previewOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comp, ok := h.bindComposition(c)
	if !ok {
		return
	}

	start := time.Now()
	png, err := preview.Render(comp, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to render preview: %v", err)})
		return
	}
	h.sentry.RecordPerformanceMetric("preview_render", time.Since(start), map[string]interface{}{
		"bytes":  len(png),
		"tracks": len(comp.Tracks),
	})

	c.Data(http.StatusOK, "image/png", png)
}

type TransposeRequest struct {
	Composition json.RawMessage `json:"composition" binding:"required"`
	Semitones   int             `json:"semitones"`
}

// Transpose shifts every note in the document by the requested number of
// semitones and returns the shifted document.
func (h *CompositionHandler) Transpose(c *gin.Context) {
	var req TransposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comp, err := models.ParseComposition(req.Composition)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("invalid composition document: %v", err)})
		return
	}

	shifted, err := h.transform.Transpose(comp, req.Semitones)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	respondDocument(c, shifted)
}

// RepairPedals clips overlapping sustain pedal windows and returns the
// repaired document.
func (h *CompositionHandler) RepairPedals(c *gin.Context) {
	comp, ok := h.bindComposition(c)
	if !ok {
		return
	}

	respondDocument(c, h.transform.RepairPedals(comp))
}

type DiffRequest struct {
	A json.RawMessage `json:"a" binding:"required"`
	B json.RawMessage `json:"b" binding:"required"`
}

// Diff compares two composition documents and reports field changes plus
// added and removed notes.
func (h *CompositionHandler) Diff(c *gin.Context) {
	var req DiffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := models.ParseComposition(req.A)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("invalid document a: %v", err)})
		return
	}
	b, err := models.ParseComposition(req.B)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("invalid document b: %v", err)})
		return
	}

	c.JSON(http.StatusOK, h.diff.Diff(a, b))
}

// bindComposition reads the request body as a canonical composition
// document, replying with an error response itself when that fails.
func (h *CompositionHandler) bindComposition(c *gin.Context) (*models.Composition, bool) {
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	comp, err := models.ParseComposition(body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("invalid composition document: %v", err)})
		return nil, false
	}
	return comp, true
}

func respondDocument(c *gin.Context, comp *models.Composition) {
	doc, err := comp.CanonicalJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"composition": json.RawMessage(doc)})
}

// readUpload returns the uploaded payload, from the "file" field when the
// request is multipart form data and from the raw body otherwise.
func readUpload(c *gin.Context) ([]byte, error) {
	if c.ContentType() == "multipart/form-data" {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing multipart field \"file\": %w", err)
		}
		if fh.Size > maxUploadBytes {
			return nil, fmt.Errorf("file too large: %d bytes", fh.Size)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return readBody(c)
}

func readBody(c *gin.Context) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("request body too large")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty request body")
	}
	return data, nil
}

// decodeAnyComposition sniffs the payload format: standard MIDI files open
// with the MThd chunk marker, everything else is treated as canonical JSON.
func decodeAnyComposition(data []byte) (*models.Composition, error) {
	if bytes.HasPrefix(data, []byte("MThd")) {
		comp, err := midifile.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("invalid MIDI file: %w", err)
		}
		return comp, nil
	}
	comp, err := models.ParseComposition(data)
	if err != nil {
		return nil, fmt.Errorf("invalid composition document: %w", err)
	}
	return comp, nil
}

func previewOptions(c *gin.Context) (preview.Options, error) {
	var opts preview.Options
	if w := c.Query("width"); w != "" {
		v, err := strconv.Atoi(w)
		if err != nil {
			return opts, fmt.Errorf("invalid width %q", w)
		}
		opts.Width = v
	}
	if hv := c.Query("height"); hv != "" {
		v, err := strconv.Atoi(hv)
		if err != nil {
			return opts, fmt.Errorf("invalid height %q", hv)
		}
		opts.Height = v
	}
	return opts, nil
}

// exportFilename derives a safe download name from the composition title.
func exportFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(title))
	if name == "" {
		name = "composition"
	}
	return name + ".mid"
}
