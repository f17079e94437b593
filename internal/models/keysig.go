package models

import (
	"fmt"
	"strings"
)

// Key signatures travel as short spelled names ("C", "F#", "Bb", "Am",
// "C#m") and map to the MIDI meta form (accidental count + mode). Sharps are
// positive, flats negative, matching the SMF convention.

var majorSharpsByClass = map[int]int{
	0: 0, 7: 1, 2: 2, 9: 3, 4: 4, 11: 5, 6: 6,
	1: -5, 8: -4, 3: -3, 10: -2, 5: -1,
}

var minorSharpsByClass = map[int]int{
	9: 0, 4: 1, 11: 2, 6: 3, 1: 4, 8: 5,
	3: -6, 10: -5, 5: -4, 0: -3, 7: -2, 2: -1,
}

var majorNamesBySharps = []string{
	"Cb", "Gb", "Db", "Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#",
}

var minorNamesBySharps = []string{
	"Abm", "Ebm", "Bbm", "Fm", "Cm", "Gm", "Dm", "Am", "Em", "Bm", "F#m", "C#m", "G#m", "D#m", "A#m",
}

// ParseKeySignature resolves a spelled key signature to its accidental count
// and mode. Accepts short forms ("Am", "F#") and verbose forms ("A minor",
// "F sharp major") case-insensitively.
func ParseKeySignature(name string) (sharps int, minor bool, err error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, false, fmt.Errorf("empty key signature")
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(lower, "minor"):
		minor = true
		s = strings.TrimSpace(s[:len(s)-len("minor")])
	case strings.HasSuffix(lower, "major"):
		s = strings.TrimSpace(s[:len(s)-len("major")])
	case strings.HasSuffix(s, "m"):
		minor = true
		s = s[:len(s)-1]
	}
	s = strings.ReplaceAll(s, " sharp", "#")
	s = strings.ReplaceAll(s, " flat", "b")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, fmt.Errorf("key signature %q has no root", name)
	}

	letter := strings.ToUpper(string(s[0]))
	class, ok := noteOffsets[letter]
	if !ok {
		return 0, false, fmt.Errorf("invalid key signature root in %q", name)
	}
	if len(s) > 1 {
		switch s[1] {
		case '#':
			class++
		case 'b':
			class--
		default:
			return 0, false, fmt.Errorf("invalid key signature %q", name)
		}
	}
	class = ((class % 12) + 12) % 12

	table := majorSharpsByClass
	if minor {
		table = minorSharpsByClass
	}
	sharps, ok = table[class]
	if !ok {
		return 0, false, fmt.Errorf("no standard spelling for key signature %q", name)
	}
	return sharps, minor, nil
}

// FormatKeySignature is the inverse of ParseKeySignature, producing the
// canonical short name for an accidental count (-7..7) and mode.
func FormatKeySignature(sharps int, minor bool) (string, error) {
	if sharps < -7 || sharps > 7 {
		return "", fmt.Errorf("key signature accidental count %d out of range", sharps)
	}
	if minor {
		return minorNamesBySharps[sharps+7], nil
	}
	return majorNamesBySharps[sharps+7], nil
}

// TransposeKeySignature shifts a spelled key signature by n semitones,
// keeping the mode. Unparseable names pass through unchanged.
func TransposeKeySignature(name string, n int) string {
	sharps, minor, err := ParseKeySignature(name)
	if err != nil {
		return name
	}
	class := keyClassFromSharps(sharps, minor)
	class = ((class+n)%12 + 12) % 12

	table := majorSharpsByClass
	if minor {
		table = minorSharpsByClass
	}
	out, err := FormatKeySignature(table[class], minor)
	if err != nil {
		return name
	}
	return out
}

// KeySignatureMeta converts a spelled key signature into the SMF meta key
// fields: root pitch class, mode, accidental count and accidental direction.
func KeySignatureMeta(name string) (root uint8, isMajor bool, accidentals uint8, flat bool, err error) {
	sharps, minor, err := ParseKeySignature(name)
	if err != nil {
		return 0, false, 0, false, err
	}
	count := sharps
	if count < 0 {
		count = -count
	}
	return uint8(keyClassFromSharps(sharps, minor)), !minor, uint8(count), sharps < 0, nil
}

// KeySignatureFromMeta spells SMF meta key fields back into the canonical
// short name.
func KeySignatureFromMeta(accidentals uint8, isMajor, flat bool) (string, error) {
	sharps := int(accidentals)
	if flat {
		sharps = -sharps
	}
	return FormatKeySignature(sharps, !isMajor)
}

func keyClassFromSharps(sharps int, minor bool) int {
	table := majorSharpsByClass
	if minor {
		table = minorSharpsByClass
	}
	for class, s := range table {
		if s == sharps {
			return class
		}
	}
	return 0
}
