package embedded

import (
	_ "embed"
)

// Embed all prompt data files
//
//go:embed data/prompts/system_prompt.txt
var SystemPromptTxt []byte

//go:embed data/prompts/variation_instructions.txt
var VariationInstructionsTxt []byte

//go:embed data/core_data/document_format.txt
var DocumentFormatTxt []byte

//go:embed data/core_data/composition_guidelines.txt
var CompositionGuidelinesTxt []byte

//go:embed data/core_data/key_characters.csv
var KeyCharactersCsv []byte
