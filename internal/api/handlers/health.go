package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// configResolver is the slice of configuration the health check needs:
// key presence, not typed fields. *config.Config satisfies it.
type configResolver interface {
	Resolve(key string) string
}

type HealthHandler struct {
	db  *gorm.DB
	cfg configResolver
}

func NewHealthHandler(db *gorm.DB, cfg configResolver) *HealthHandler {
	return &HealthHandler{db: db, cfg: cfg}
}

// HealthCheck returns the health status of the API, including database
// reachability and which LLM providers have credentials configured.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := "ok"
	if h.db == nil {
		dbStatus = "disabled"
	} else if err := h.pingDatabase(); err != nil {
		dbStatus = "unreachable"
	}

	providers := []string{}
	if h.cfg.Resolve("OPENAI_API_KEY") != "" {
		providers = append(providers, "openai")
	}
	if h.cfg.Resolve("GEMINI_API_KEY") != "" {
		providers = append(providers, "gemini")
	}

	status := "healthy"
	code := http.StatusOK
	if dbStatus == "unreachable" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbStatus,
		"providers": providers,
	})
}

func (h *HealthHandler) pingDatabase() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
