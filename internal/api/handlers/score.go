package handlers

import (
	"net/http"

	"github.com/etude-works/etude-api/internal/analysis"
	"github.com/etude-works/etude-api/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ScoreHandler struct {
	scoring *services.ScoringService
}

func NewScoreHandler(db *gorm.DB) *ScoreHandler {
	return &ScoreHandler{scoring: services.NewScoringService(db)}
}

// Score analyzes the posted composition (MIDI bytes or canonical JSON) and
// grades it against the reference corpus.
func (h *ScoreHandler) Score(c *gin.Context) {
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

	report := analysis.Analyze(comp)
	score, err := h.scoring.Score(report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"score": score, "analysis": report})
}
