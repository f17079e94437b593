package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/etude-works/etude-api/internal/config"
	"github.com/etude-works/etude-api/internal/database"
	"github.com/etude-works/etude-api/internal/midifile"
	"github.com/etude-works/etude-api/internal/models"
	"github.com/etude-works/etude-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testDocument = `{
  "title": "Handler Test Piece",
  "bpm": 96,
  "time_signature": {"numerator": 4, "denominator": 4},
  "key_signature": "C",
  "ppq": 480,
  "tracks": [
    {
      "name": "Piano",
      "channel": 0,
      "events": [
        {"type": "note", "start": 0, "duration": 1, "pitches": [60, 64, 67], "velocity": 80},
        {"type": "note", "start": 1, "duration": 0.5, "pitch": 62, "velocity": 74},
        {"type": "note", "start": 2, "duration": 2, "pitch": 64, "velocity": 85},
        {"type": "pedal", "start": 0, "duration": 2, "value": 127}
      ]
    }
  ]
}`

// setupTestRouter creates a minimal test router with just the endpoints we
// need, backed by a throwaway sqlite database and a config without provider
// credentials.
func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Environment:  "test",
		DefaultModel: "gpt-4o",
		AuthMode:     "none",
	}

	router := gin.New()

	healthHandler := NewHealthHandler(db, cfg)
	router.GET("/health", healthHandler.HealthCheck)

	v1 := router.Group("/api/v1")

	metricsHandler := NewMetricsHandler("test", services.NewUsageService(db))
	v1.GET("/metrics", metricsHandler.GetMetrics)

	compositionHandler := NewCompositionHandler()
	compositions := v1.Group("/compositions")
	compositions.POST("/import", compositionHandler.Import)
	compositions.POST("/export", compositionHandler.Export)
	compositions.POST("/analyze", compositionHandler.Analyze)
	compositions.POST("/preview", compositionHandler.Preview)
	compositions.POST("/transpose", compositionHandler.Transpose)
	compositions.POST("/repair-pedals", compositionHandler.RepairPedals)
	compositions.POST("/diff", compositionHandler.Diff)

	generationHandler := NewGenerationHandler(cfg, db, nil)
	v1.POST("/generate", generationHandler.Generate)

	referenceHandler := NewReferenceHandler(db, nil)
	v1.GET("/references", referenceHandler.List)
	v1.POST("/references", referenceHandler.Add)

	scoreHandler := NewScoreHandler(db)
	v1.POST("/score", scoreHandler.Score)

	return router, db
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// testMIDI renders the test document as MIDI bytes.
func testMIDI(t *testing.T) []byte {
	t.Helper()

	comp, err := models.ParseComposition([]byte(testDocument))
	require.NoError(t, err)
	data, err := midifile.Encode(comp)
	require.NoError(t, err)
	return data
}
