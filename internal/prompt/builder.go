package prompt

import (
	"fmt"
	"strings"

	"github.com/etude-works/etude-api/internal/analysis"
)

// Builder assembles the system and user prompts for composition requests
type Builder struct {
	loader *Loader
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder() *Builder {
	return &Builder{loader: NewPromptLoader()}
}

// CompositionBrief carries the user-facing request for a new piece. Zero
// fields are omitted from the rendered prompt.
type CompositionBrief struct {
	Description   string  `json:"description"`
	Style         string  `json:"style,omitempty"`
	Key           string  `json:"key,omitempty"`
	TempoBPM      float64 `json:"tempo_bpm,omitempty"`
	TimeSignature string  `json:"time_signature,omitempty"`
	Bars          int     `json:"bars,omitempty"`
}

// VariationBrief carries an existing piece and the change to make to it.
// Document is the piece in its canonical JSON form; Summary is the analysis
// digest produced by SummarizeReport.
type VariationBrief struct {
	Document    string
	Summary     string
	Instruction string
}

// BuildSystemPrompt builds the complete system prompt: role instructions,
// the document format reference, writing guidelines and the key character
// table
func (b *Builder) BuildSystemPrompt() (string, error) {
	systemPrompt, err := b.loader.GetSystemPrompt()
	if err != nil {
		return "", fmt.Errorf("failed to load system prompt: %w", err)
	}

	format, err := b.loader.GetDocumentFormat()
	if err != nil {
		return "", fmt.Errorf("failed to load document format: %w", err)
	}

	guidelines, err := b.loader.GetCompositionGuidelines()
	if err != nil {
		return "", fmt.Errorf("failed to load composition guidelines: %w", err)
	}

	keyCharacters, err := b.getKeyCharactersReference()
	if err != nil {
		return "", err
	}

	sections := []string{
		systemPrompt,
		format,
		guidelines,
		keyCharacters,
	}

	return strings.Join(sections, "\n\n"), nil
}

// BuildCompositionPrompt renders the user message for a new piece request
func (b *Builder) BuildCompositionPrompt(brief CompositionBrief) (string, error) {
	var sb strings.Builder
	sb.WriteString("Compose a new piano piece.\n")

	if desc := strings.TrimSpace(brief.Description); desc != "" {
		sb.WriteString("\nBrief:\n")
		sb.WriteString(desc)
		sb.WriteString("\n")
	}

	if constraints := brief.constraintLines(); len(constraints) > 0 {
		sb.WriteString("\nConstraints:\n")
		for _, line := range constraints {
			sb.WriteString("- ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nReturn the complete piece as a single JSON document.")
	return sb.String(), nil
}

// BuildVariationPrompt renders the user message for a variation request:
// the variation instructions, the source document, its analysis summary and
// the requested change
func (b *Builder) BuildVariationPrompt(brief VariationBrief) (string, error) {
	instructions, err := b.loader.GetVariationInstructions()
	if err != nil {
		return "", fmt.Errorf("failed to load variation instructions: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n## Source piece\n\n")
	sb.WriteString(strings.TrimSpace(brief.Document))
	sb.WriteString("\n")

	if summary := strings.TrimSpace(brief.Summary); summary != "" {
		sb.WriteString("\n## Source analysis\n\n")
		sb.WriteString(summary)
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Requested variation\n\n")
	sb.WriteString(strings.TrimSpace(brief.Instruction))
	sb.WriteString("\n\nReturn the complete varied piece as a single JSON document.")
	return sb.String(), nil
}

// getKeyCharactersReference wraps the key character table in its prompt
// section header
func (b *Builder) getKeyCharactersReference() (string, error) {
	table, err := b.loader.GetKeyCharacters()
	if err != nil {
		return "", fmt.Errorf("failed to load key characters: %w", err)
	}

	return "## Key Characters (reference)\n\n" +
		"Commonly ascribed characters by key, for briefs that name a mood but no key:\n\n" +
		table, nil
}

func (brief CompositionBrief) constraintLines() []string {
	var lines []string
	if brief.Style != "" {
		lines = append(lines, "style: "+brief.Style)
	}
	if brief.Key != "" {
		lines = append(lines, "key: "+brief.Key)
	}
	if brief.TempoBPM > 0 {
		lines = append(lines, fmt.Sprintf("tempo: %.0f BPM", brief.TempoBPM))
	}
	if brief.TimeSignature != "" {
		lines = append(lines, "time signature: "+brief.TimeSignature)
	}
	if brief.Bars > 0 {
		lines = append(lines, fmt.Sprintf("length: %d bars", brief.Bars))
	}
	return lines
}

// SummarizeReport condenses an analysis report into the bullet digest
// embedded in variation prompts. Metrics the report could not compute are
// skipped rather than rendered as zeros.
func SummarizeReport(r *analysis.Report) string {
	if r == nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "- length: %.1f bars of %s at %.0f BPM\n", r.BarCount, r.TimeSignature, r.BPM)
	if r.KeySignature != "" {
		fmt.Fprintf(&sb, "- key signature: %s\n", r.KeySignature)
	}
	if r.TempoChanges > 0 {
		fmt.Fprintf(&sb, "- tempo changes: %d\n", r.TempoChanges)
	}

	for _, p := range r.Parts {
		fmt.Fprintf(&sb, "- part %q (channel %d): %d notes\n", p.Name, p.Channel, p.NoteCount)
		if p.NoteCount == 0 {
			continue
		}
		if p.Key.Name != "" && p.Key.Name != "unknown" {
			fmt.Fprintf(&sb, "  - estimated key: %s (confidence %.2f)\n", p.Key.Name, p.Key.Confidence)
		}
		if p.NoteDensity != nil {
			fmt.Fprintf(&sb, "  - density: %.1f notes per bar\n", *p.NoteDensity)
		}
		fmt.Fprintf(&sb, "  - motifs: %d recurring figures\n", len(p.Motifs))
		if p.PedalCoverage != nil {
			fmt.Fprintf(&sb, "  - pedal down %.0f%% of the piece\n", *p.PedalCoverage*100)
		}
		if p.SilenceRatio != nil {
			fmt.Fprintf(&sb, "  - silence: %.0f%% of the duration\n", *p.SilenceRatio*100)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
