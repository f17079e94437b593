package models

import (
	"time"

	"gorm.io/gorm"
)

// Piece sources.
const (
	PieceSourceImported  = "imported"
	PieceSourceGenerated = "generated"
)

// Piece is a stored composition in canonical JSON form.
type Piece struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Title     string         `gorm:"not null;index" json:"title"`
	Source    string         `gorm:"not null;default:'imported';index" json:"source"` // "imported", "generated"
	Model     string         `json:"model,omitempty"`                                 // generating model, if any
	Document  string         `gorm:"type:text;not null" json:"-"`
	Checksum  string         `gorm:"uniqueIndex;size:64" json:"checksum"`
	Reference bool           `gorm:"default:false;index" json:"reference"` // part of the scoring corpus
}

// AnalysisRecord stores the serialized analysis report for a piece.
type AnalysisRecord struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	PieceID   uint           `gorm:"not null;uniqueIndex" json:"piece_id"`
	Piece     Piece          `gorm:"foreignKey:PieceID" json:"-"`
	Report    string         `gorm:"type:text;not null" json:"-"`
}

// UsageLog tracks generation requests and their token consumption.
type UsageLog struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Provider     string    `gorm:"not null" json:"provider"`
	Model        string    `gorm:"not null" json:"model"`
	TotalTokens  int       `gorm:"not null" json:"total_tokens"`
	InputTokens  int       `gorm:"not null" json:"input_tokens"`
	OutputTokens int       `gorm:"not null" json:"output_tokens"`
	DurationMS   int       `gorm:"not null" json:"duration_ms"`
	Success      bool      `gorm:"default:true" json:"success"`
	RequestID    string    `gorm:"index" json:"request_id"`
}
