package llm

const (
	// MIDI pitch constraints
	midiPitchMin = 0
	midiPitchMax = 127

	// Velocity constraints
	velocityMin     = 1
	velocityMax     = 127
	velocityDefault = 80

	// Pedal value constraints
	pedalValueMin = 0
	pedalValueMax = 127

	// Tempo constraints
	bpmMin = 20
	bpmMax = 400

	// Duration constraints
	durationBeatsMin = 0.01

	// Meter constraints
	meterNumeratorMin = 1
	meterNumeratorMax = 32
)

// GetCompositionSchema returns the JSON schema for the canonical composition
// document. The event object is a tagged union; OpenAI structured output
// requires additionalProperties: false with every property listed in
// 'required', so type-specific fields are declared nullable and the prompt
// guides which fields each event type populates.
func GetCompositionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"bpm":   map[string]any{"type": "number", "minimum": bpmMin, "maximum": bpmMax},
			"time_signature": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"numerator":   map[string]any{"type": "integer", "minimum": meterNumeratorMin, "maximum": meterNumeratorMax},
					"denominator": map[string]any{"type": "integer", "enum": []int{1, 2, 4, 8, 16, 32}},
				},
				"required":             []string{"numerator", "denominator"},
				"additionalProperties": false,
			},
			"key_signature": map[string]any{
				"type":        []any{"string", "null"},
				"description": "Key such as 'C', 'Eb', 'F#m'. Use null when unknown.",
			},
			"ppq": map[string]any{"type": "integer", "minimum": 24, "maximum": 960},
			"tracks": map[string]any{
				"type":  "array",
				"items": getTrackSchema(),
			},
		},
		"required":             []string{"title", "bpm", "time_signature", "key_signature", "ppq", "tracks"},
		"additionalProperties": false,
	}
}

func getTrackSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":    map[string]any{"type": "string"},
			"channel": map[string]any{"type": "integer", "minimum": 0, "maximum": 15},
			"program": map[string]any{"type": "integer", "minimum": 0, "maximum": 127},
			"events": map[string]any{
				"type":  "array",
				"items": getEventSchema(),
			},
		},
		"required":             []string{"name", "channel", "program", "events"},
		"additionalProperties": false,
	}
}

func getEventSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": map[string]any{
				"type": "string",
				"enum": []string{"note", "pedal", "tempo", "section"},
			},
			"start": map[string]any{"type": "number", "minimum": 0},
			"duration": map[string]any{
				"type":        []any{"number", "null"},
				"minimum":     durationBeatsMin,
				"description": "Length in beats. Required for note and pedal events. Use null otherwise.",
			},
			"pitches": map[string]any{
				"type":        []any{"array", "null"},
				"items":       map[string]any{"type": "integer", "minimum": midiPitchMin, "maximum": midiPitchMax},
				"description": "MIDI pitches sounding together (note events). Use null for other event types.",
			},
			"velocity": map[string]any{
				"type":        []any{"integer", "null"},
				"minimum":     velocityMin,
				"maximum":     velocityMax,
				"default":     velocityDefault,
				"description": "Note velocity. Use null for non-note events.",
			},
			"value": map[string]any{
				"type":        []any{"integer", "null"},
				"minimum":     pedalValueMin,
				"maximum":     pedalValueMax,
				"description": "Sustain pedal press value (pedal events). Use null otherwise.",
			},
			"bpm": map[string]any{
				"type":        []any{"number", "null"},
				"minimum":     bpmMin,
				"maximum":     bpmMax,
				"description": "New tempo (tempo events). Use null otherwise.",
			},
			"end_bpm": map[string]any{
				"type":        []any{"number", "null"},
				"minimum":     bpmMin,
				"maximum":     bpmMax,
				"description": "Target tempo for a gradual change over 'duration' beats. Use null for instant changes.",
			},
			"name": map[string]any{
				"type":        []any{"string", "null"},
				"description": "Section name (section events). Use null otherwise.",
			},
		},
		// OpenAI requires additionalProperties: false AND all properties in
		// 'required'; the AI populates only the fields relevant to each type
		"required": []string{
			"type",
			"start",
			"duration",
			"pitches",
			"velocity",
			"value",
			"bpm",
			"end_bpm",
			"name",
		},
		"additionalProperties": false,
	}
}
