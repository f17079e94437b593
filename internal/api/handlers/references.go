package handlers

import (
	"fmt"
	"net/http"

	"github.com/etude-works/etude-api/internal/metrics"
	"github.com/etude-works/etude-api/internal/models"
	"github.com/etude-works/etude-api/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReferenceHandler manages the corpus of reference pieces that scoring
// grades against.
type ReferenceHandler struct {
	scoring    *services.ScoringService
	cloudwatch *metrics.Client
}

func NewReferenceHandler(db *gorm.DB, cloudwatch *metrics.Client) *ReferenceHandler {
	return &ReferenceHandler{
		scoring:    services.NewScoringService(db),
		cloudwatch: cloudwatch,
	}
}

// List returns every piece in the reference corpus.
func (h *ReferenceHandler) List(c *gin.Context) {
	refs, err := h.scoring.ListReferences()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"references": refs, "count": len(refs)})
}

// Add imports a composition (MIDI bytes or canonical JSON), analyzes it
// and stores it in the scoring corpus. Re-posting a piece that is already
// stored promotes it to a reference instead of duplicating it.
func (h *ReferenceHandler) Add(c *gin.Context) {
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

	piece, report, err := h.scoring.StoreReference(comp, models.PieceSourceImported)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to store reference: %v", err)})
		return
	}
	if h.cloudwatch != nil {
		h.cloudwatch.RecordPieceStored(models.PieceSourceImported)
	}

	c.JSON(http.StatusCreated, gin.H{"piece": piece, "analysis": report})
}
