package handlers

const (
	// Upload limit for composition endpoints. MIDI files are small;
	// anything near this size is garbage.
	maxUploadBytes = 16 << 20

	// Generation defaults
	defaultReasoningMode = "medium"
)
