package services

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/etude-works/etude-api/internal/analysis"
	"github.com/etude-works/etude-api/internal/models"
	"gorm.io/gorm"
)

// storePiece persists a composition in canonical form, deduplicating on the
// document checksum, and stores its analysis report alongside. A piece that
// already exists is returned as stored; asReference promotes it into the
// scoring corpus but never demotes.
func storePiece(db *gorm.DB, c *models.Composition, source, model string, asReference bool) (*models.Piece, *analysis.Report, error) {
	canonical, err := c.CanonicalJSON()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize composition: %w", err)
	}
	checksum := fmt.Sprintf("%x", sha256.Sum256(canonical))

	title := c.Title
	if title == "" {
		title = "Untitled"
	}

	var piece models.Piece
	err = db.Where(models.Piece{Checksum: checksum}).Attrs(models.Piece{
		Title:     title,
		Source:    source,
		Model:     model,
		Document:  string(canonical),
		Reference: asReference,
	}).FirstOrCreate(&piece).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to store piece: %w", err)
	}

	if asReference && !piece.Reference {
		if err := db.Model(&piece).Update("reference", true).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to promote piece to reference: %w", err)
		}
		piece.Reference = true
	}

	report := analysis.Analyze(c)
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize analysis report: %w", err)
	}

	var record models.AnalysisRecord
	err = db.Where(models.AnalysisRecord{PieceID: piece.ID}).Attrs(models.AnalysisRecord{
		Report: string(reportJSON),
	}).FirstOrCreate(&record).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to store analysis report: %w", err)
	}

	return &piece, report, nil
}
