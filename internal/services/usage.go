package services

import (
	"time"

	"github.com/etude-works/etude-api/internal/models"
	"gorm.io/gorm"
)

type UsageService struct {
	db *gorm.DB
}

func NewUsageService(db *gorm.DB) *UsageService {
	return &UsageService{db: db}
}

// LogUsage records one generation request and its token consumption
func (s *UsageService) LogUsage(entry *models.UsageLog) error {
	return s.db.Create(entry).Error
}

// GetUsageStats retrieves aggregate usage for the given window. A zero from
// or to leaves that side of the window open.
func (s *UsageService) GetUsageStats(from, to time.Time) (*UsageStats, error) {
	var stats UsageStats

	if err := s.windowed(from, to).Select(
		"COUNT(*) as total_requests",
		"COALESCE(SUM(total_tokens), 0) as total_tokens",
		"COALESCE(SUM(input_tokens), 0) as total_input_tokens",
		"COALESCE(SUM(output_tokens), 0) as total_output_tokens",
		"COALESCE(AVG(duration_ms), 0) as avg_duration_ms",
	).Scan(&stats).Error; err != nil {
		return nil, err
	}

	stats.ModelUsage = make(map[string]int64)
	rows, err := s.windowed(from, to).Select("model, COUNT(*) as count").Group("model").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var model string
		var count int64
		if err := rows.Scan(&model, &count); err != nil {
			return nil, err
		}
		stats.ModelUsage[model] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &stats, nil
}

func (s *UsageService) windowed(from, to time.Time) *gorm.DB {
	query := s.db.Model(&models.UsageLog{})
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at <= ?", to)
	}
	return query
}

type UsageStats struct {
	TotalRequests     int64            `json:"total_requests"`
	TotalTokens       int64            `json:"total_tokens"`
	TotalInputTokens  int64            `json:"total_input_tokens"`
	TotalOutputTokens int64            `json:"total_output_tokens"`
	AvgDurationMS     float64          `json:"avg_duration_ms"`
	ModelUsage        map[string]int64 `json:"model_usage"`
}
