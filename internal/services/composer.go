package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/etude-works/etude-api/internal/analysis"
	"github.com/etude-works/etude-api/internal/config"
	"github.com/etude-works/etude-api/internal/jsonx"
	"github.com/etude-works/etude-api/internal/llm"
	"github.com/etude-works/etude-api/internal/logger"
	"github.com/etude-works/etude-api/internal/metrics"
	"github.com/etude-works/etude-api/internal/models"
	"github.com/etude-works/etude-api/internal/observability"
	"github.com/etude-works/etude-api/internal/prompt"
	"gorm.io/gorm"
)

// ErrRejected marks a request the model declined as outside its scope. The
// wrapped text is the model's own reason.
var ErrRejected = errors.New("generation rejected")

// ErrInvalidSource marks a variation request whose source document failed to
// parse.
var ErrInvalidSource = errors.New("invalid source document")

// ComposerService runs the full generation pipeline: build prompts, call the
// provider, extract and validate the returned document, persist the piece and
// its analysis, and account for tokens along the way.
type ComposerService struct {
	db         *gorm.DB
	cfg        *config.Config
	factory    *llm.ProviderFactory
	builder    *prompt.Builder
	usage      *UsageService
	sentry     *metrics.SentryMetrics
	cloudwatch *metrics.Client
}

// NewComposerService wires the pipeline. cloudwatch may be nil when CloudWatch
// metrics are disabled.
func NewComposerService(db *gorm.DB, cfg *config.Config, cloudwatch *metrics.Client) *ComposerService {
	return &ComposerService{
		db:         db,
		cfg:        cfg,
		factory:    llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey),
		builder:    prompt.NewPromptBuilder(),
		usage:      NewUsageService(db),
		sentry:     metrics.NewSentryMetrics(),
		cloudwatch: cloudwatch,
	}
}

// ComposeRequest describes a new piece to generate.
type ComposeRequest struct {
	Brief         prompt.CompositionBrief
	Model         string
	Provider      string
	ReasoningMode string
	RequestID     string
}

// VariationRequest asks for a variation on an existing canonical document.
type VariationRequest struct {
	Document      []byte
	Instruction   string
	Model         string
	Provider      string
	ReasoningMode string
	RequestID     string
}

// ComposeResult is a finished generation. Piece is nil when persistence
// failed; the composition itself is still returned.
type ComposeResult struct {
	Piece       *models.Piece
	Composition *models.Composition
	Document    []byte
	Report      *analysis.Report
	Provider    string
	Model       string
	Usage       *llm.TokenUsage
	Duration    time.Duration
}

// Compose generates a new piece from the brief.
func (s *ComposerService) Compose(ctx context.Context, req ComposeRequest) (*ComposeResult, error) {
	return s.compose(ctx, req, nil)
}

// ComposeStream generates a new piece, forwarding provider stream events to
// the callback as they arrive.
func (s *ComposerService) ComposeStream(ctx context.Context, req ComposeRequest, callback llm.StreamCallback) (*ComposeResult, error) {
	return s.compose(ctx, req, callback)
}

// Vary generates a variation of the given document per the instruction.
func (s *ComposerService) Vary(ctx context.Context, req VariationRequest) (*ComposeResult, error) {
	return s.vary(ctx, req, nil)
}

// VaryStream is Vary with streaming updates.
func (s *ComposerService) VaryStream(ctx context.Context, req VariationRequest, callback llm.StreamCallback) (*ComposeResult, error) {
	return s.vary(ctx, req, callback)
}

func (s *ComposerService) compose(ctx context.Context, req ComposeRequest, callback llm.StreamCallback) (*ComposeResult, error) {
	systemPrompt, err := s.builder.BuildSystemPrompt()
	if err != nil {
		return nil, fmt.Errorf("failed to build system prompt: %w", err)
	}
	userPrompt, err := s.builder.BuildCompositionPrompt(req.Brief)
	if err != nil {
		return nil, fmt.Errorf("failed to build composition prompt: %w", err)
	}

	return s.generate(ctx, generationSpec{
		name:          "composition",
		model:         s.pickModel(req.Model),
		providerName:  req.Provider,
		reasoningMode: req.ReasoningMode,
		systemPrompt:  systemPrompt,
		userPrompt:    userPrompt,
		requestID:     req.RequestID,
	}, callback)
}

func (s *ComposerService) vary(ctx context.Context, req VariationRequest, callback llm.StreamCallback) (*ComposeResult, error) {
	if req.Instruction == "" {
		return nil, fmt.Errorf("variation instruction is required")
	}
	source, err := models.ParseComposition(req.Document)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	canonical, err := source.CanonicalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize source document: %w", err)
	}

	systemPrompt, err := s.builder.BuildSystemPrompt()
	if err != nil {
		return nil, fmt.Errorf("failed to build system prompt: %w", err)
	}
	userPrompt, err := s.builder.BuildVariationPrompt(prompt.VariationBrief{
		Document:    string(canonical),
		Summary:     prompt.SummarizeReport(analysis.Analyze(source)),
		Instruction: req.Instruction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build variation prompt: %w", err)
	}

	return s.generate(ctx, generationSpec{
		name:          "variation",
		model:         s.pickModel(req.Model),
		providerName:  req.Provider,
		reasoningMode: req.ReasoningMode,
		systemPrompt:  systemPrompt,
		userPrompt:    userPrompt,
		requestID:     req.RequestID,
	}, callback)
}

type generationSpec struct {
	name          string // trace name: "composition" or "variation"
	model         string
	providerName  string
	reasoningMode string
	systemPrompt  string
	userPrompt    string
	requestID     string
}

func (s *ComposerService) generate(ctx context.Context, spec generationSpec, callback llm.StreamCallback) (*ComposeResult, error) {
	start := time.Now()

	provider, err := s.factory.GetProvider(ctx, spec.model, spec.providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve provider: %w", err)
	}

	request := &llm.GenerationRequest{
		Model:         spec.model,
		SystemPrompt:  spec.systemPrompt,
		InputArray:    []map[string]any{{"role": "user", "content": spec.userPrompt}},
		ReasoningMode: spec.reasoningMode,
		OutputSchema: &llm.OutputSchema{
			Name:        "composition",
			Description: "A complete piano composition document",
			Schema:      llm.GetCompositionSchema(),
		},
	}

	trace := observability.GetClient().StartTrace(ctx, "etude."+spec.name, map[string]interface{}{
		"request_id": spec.requestID,
		"model":      spec.model,
	})
	defer trace.Finish()
	generation := trace.Generation(spec.name, nil)

	var resp *llm.GenerationResponse
	if callback != nil {
		resp, err = provider.GenerateStream(ctx, request, callback)
	} else {
		resp, err = provider.Generate(ctx, request)
	}
	duration := time.Since(start)

	if err != nil {
		s.recordOutcome(ctx, provider.Name(), spec, nil, duration, false)
		generation.SetLevel("ERROR")
		generation.Finish()
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	generation.LogGenerationResult(provider.Name(), spec.model, request.InputArray,
		resp.RawOutput, resp.Usage, map[string]interface{}{"request_id": spec.requestID})
	generation.Finish()

	comp, err := parseModelOutput(resp.RawOutput)
	if err != nil {
		s.recordOutcome(ctx, provider.Name(), spec, resp.Usage, duration, false)
		return nil, err
	}
	s.recordOutcome(ctx, provider.Name(), spec, resp.Usage, duration, true)

	canonical, err := comp.CanonicalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize composition: %w", err)
	}

	result := &ComposeResult{
		Composition: comp,
		Document:    canonical,
		Provider:    provider.Name(),
		Model:       spec.model,
		Usage:       resp.Usage,
		Duration:    duration,
	}

	// A storage failure loses the record, not the user's result.
	piece, report, err := storePiece(s.db, comp, models.PieceSourceGenerated, spec.model, false)
	if err != nil {
		logger.Error("Failed to store generated piece", err, logger.Fields{"request_id": spec.requestID})
		result.Report = analysis.Analyze(comp)
		return result, nil
	}
	result.Piece = piece
	result.Report = report
	if s.cloudwatch != nil {
		s.cloudwatch.RecordPieceStored(models.PieceSourceGenerated)
	}
	return result, nil
}

// parseModelOutput turns raw model text into a validated composition. A
// deliberate {"error": ...} answer from the model surfaces as ErrRejected.
func parseModelOutput(raw string) (*models.Composition, error) {
	doc, err := jsonx.Extract(raw)
	if err != nil {
		return nil, fmt.Errorf("model output contained no JSON document: %w", err)
	}

	var rejection struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(doc), &rejection); err == nil && rejection.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRejected, rejection.Error)
	}

	comp, err := models.ParseComposition([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("model output did not parse as a composition: %w", err)
	}
	return comp, nil
}

func (s *ComposerService) recordOutcome(ctx context.Context, providerName string, spec generationSpec,
	usage *llm.TokenUsage, duration time.Duration, success bool) {
	s.sentry.RecordGenerationDuration(ctx, duration, success)
	if s.cloudwatch != nil {
		s.cloudwatch.RecordGenerationDuration(duration, success)
	}

	entry := &models.UsageLog{
		Provider:   providerName,
		Model:      spec.model,
		DurationMS: int(duration.Milliseconds()),
		Success:    success,
		RequestID:  spec.requestID,
	}
	if usage != nil {
		entry.TotalTokens = usage.TotalTokens
		entry.InputTokens = usage.InputTokens
		entry.OutputTokens = usage.OutputTokens
		s.sentry.RecordTokenUsage(ctx, providerName, spec.model, usage.TotalTokens, usage.InputTokens, usage.OutputTokens)
		if s.cloudwatch != nil {
			s.cloudwatch.RecordTokenUsage(providerName, spec.model, usage.TotalTokens, usage.InputTokens, usage.OutputTokens)
		}
	}
	if err := s.usage.LogUsage(entry); err != nil {
		logger.Error("Failed to log usage", err, logger.Fields{"request_id": spec.requestID})
	}
}

func (s *ComposerService) pickModel(model string) string {
	if model != "" {
		return model
	}
	return s.cfg.DefaultModel
}
