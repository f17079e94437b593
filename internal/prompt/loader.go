package prompt

import (
	"strings"

	"github.com/etude-works/etude-api/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetSystemPrompt loads the main system prompt
func (l *Loader) GetSystemPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.SystemPromptTxt)), nil
}

// GetDocumentFormat loads the composition document format reference
func (l *Loader) GetDocumentFormat() (string, error) {
	return strings.TrimSpace(string(embedded.DocumentFormatTxt)), nil
}

// GetCompositionGuidelines loads the piano writing guidelines
func (l *Loader) GetCompositionGuidelines() (string, error) {
	return strings.TrimSpace(string(embedded.CompositionGuidelinesTxt)), nil
}

// GetVariationInstructions loads the variation request instructions
func (l *Loader) GetVariationInstructions() (string, error) {
	return strings.TrimSpace(string(embedded.VariationInstructionsTxt)), nil
}

// GetKeyCharacters loads the key character table CSV
func (l *Loader) GetKeyCharacters() (string, error) {
	return strings.TrimSpace(string(embedded.KeyCharactersCsv)), nil
}
