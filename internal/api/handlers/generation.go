package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/etude-works/etude-api/internal/config"
	"github.com/etude-works/etude-api/internal/llm"
	"github.com/etude-works/etude-api/internal/metrics"
	"github.com/etude-works/etude-api/internal/prompt"
	"github.com/etude-works/etude-api/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type GenerationHandler struct {
	composer *services.ComposerService
	scoring  *services.ScoringService
	cfg      *config.Config
}

func NewGenerationHandler(cfg *config.Config, db *gorm.DB, cloudwatch *metrics.Client) *GenerationHandler {
	return &GenerationHandler{
		composer: services.NewComposerService(db, cfg, cloudwatch),
		scoring:  services.NewScoringService(db),
		cfg:      cfg,
	}
}

type GenerateRequest struct {
	// Brief describes a piece to compose from scratch.
	Brief *prompt.CompositionBrief `json:"brief"`

	// Source plus Instruction request a variation of an existing document
	// instead of a new composition.
	Source      json.RawMessage `json:"source"`
	Instruction string          `json:"instruction"`

	Model string `json:"model"` // Model to use (e.g., gpt-4o, gemini-2.5-flash)
	// Optional: provider override (openai, gemini) - defaults to provider based on model
	Provider      string `json:"provider"`
	ReasoningMode string `json:"reasoning_mode"` // Reasoning mode (minimal, low, medium, high)
}

func (h *GenerationHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Brief == nil && len(req.Source) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either brief or source is required"})
		return
	}
	if req.Brief != nil && len(req.Source) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brief and source are mutually exclusive"})
		return
	}
	if len(req.Source) > 0 && req.Instruction == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instruction is required when source is set"})
		return
	}

	// Use requested model or fall back to the configured default
	model := req.Model
	if model == "" {
		model = h.cfg.DefaultModel
	}

	// Validate model - support OpenAI GPT and Google Gemini models
	allowedModels := map[string]bool{
		"gpt-4o":           true,
		"gpt-4o-mini":      true,
		"gpt-5":            true,
		"gpt-5-mini":       true,
		"gemini-2.5-flash": true,
		"gemini-2.5-pro":   true,
	}
	if !allowedModels[model] && model != h.cfg.DefaultModel {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid model. Allowed: gpt-4o, gpt-4o-mini, gpt-5, gpt-5-mini, gemini-2.5-flash, gemini-2.5-pro",
		})
		return
	}

	if req.Provider != "" {
		allowedProviders := map[string]bool{
			"openai": true,
			"gemini": true,
			"google": true,
		}
		if !allowedProviders[req.Provider] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid provider. Allowed: openai, gemini"})
			return
		}
	}

	// Validate reasoning mode (allow empty, will default to medium)
	if req.ReasoningMode == "" {
		req.ReasoningMode = defaultReasoningMode
	}
	allowedReasoningModes := map[string]bool{
		"minimal": true,
		"low":     true,
		"medium":  true,
		"high":    true,
	}
	if !allowedReasoningModes[req.ReasoningMode] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reasoning_mode. Allowed: minimal, low, medium, high"})
		return
	}

	// Route based on streaming preference
	if c.Query("stream") == "true" {
		h.generateStream(c, req, model)
		return
	}

	h.generateOneShot(c, req, model)
}

// generateOneShot handles non-streaming one-shot generation
func (h *GenerationHandler) generateOneShot(c *gin.Context, req GenerateRequest, model string) {
	result, err := h.run(c, req, model, nil)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrRejected) || errors.Is(err, services.ErrInvalidSource) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.buildResponse(c, result))
}

func (h *GenerationHandler) generateStream(c *gin.Context, req GenerateRequest, model string) {
	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	result, err := h.run(c, req, model, func(event llm.StreamEvent) error {
		return writeStreamEvent(c, event)
	})

	if err != nil {
		_ = writeStreamEvent(c, llm.StreamEvent{
			Type:    "error",
			Message: err.Error(),
		})
		return
	}

	// Send final result event with the complete composition and report
	_ = writeStreamEvent(c, llm.StreamEvent{
		Type:    "result",
		Message: "Generation complete",
		Data:    h.buildResponse(c, result),
	})

	// Send done event
	_ = writeStreamEvent(c, llm.StreamEvent{
		Type:    "done",
		Message: "Stream complete",
		Data: map[string]interface{}{
			"request_id": c.GetString("request_id"),
		},
	})
}

// run dispatches to the composition or variation pipeline, streaming when a
// callback is given.
func (h *GenerationHandler) run(c *gin.Context, req GenerateRequest, model string, callback llm.StreamCallback) (*services.ComposeResult, error) {
	ctx := c.Request.Context()
	requestID := c.GetString("request_id")

	if len(req.Source) > 0 {
		vreq := services.VariationRequest{
			Document:      req.Source,
			Instruction:   req.Instruction,
			Model:         model,
			Provider:      req.Provider,
			ReasoningMode: req.ReasoningMode,
			RequestID:     requestID,
		}
		if callback != nil {
			return h.composer.VaryStream(ctx, vreq, callback)
		}
		return h.composer.Vary(ctx, vreq)
	}

	creq := services.ComposeRequest{
		Brief:         *req.Brief,
		Model:         model,
		Provider:      req.Provider,
		ReasoningMode: req.ReasoningMode,
		RequestID:     requestID,
	}
	if callback != nil {
		return h.composer.ComposeStream(ctx, creq, callback)
	}
	return h.composer.Compose(ctx, creq)
}

func (h *GenerationHandler) buildResponse(c *gin.Context, result *services.ComposeResult) map[string]interface{} {
	response := map[string]interface{}{
		"request_id":  c.GetString("request_id"),
		"composition": json.RawMessage(result.Document),
		"analysis":    result.Report,
		"provider":    result.Provider,
		"model":       result.Model,
		"usage":       result.Usage,
	}
	if result.Piece != nil {
		response["piece_id"] = result.Piece.ID
	}
	if score, err := h.scoring.Score(result.Report); err == nil {
		response["score"] = score
	}
	return response
}

func writeStreamEvent(c *gin.Context, event llm.StreamEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Writer, "data: %s\n\n", eventJSON)
	c.Writer.Flush()
	return nil
}
