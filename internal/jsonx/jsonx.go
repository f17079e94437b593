// Package jsonx locates JSON objects inside model output. Providers are asked
// for bare JSON but routinely wrap it in markdown fences or prose, and
// sometimes emit almost-JSON with trailing commas or single quotes. Extract
// finds the most likely candidate and Repair fixes what can be fixed without
// guessing at structure.
package jsonx

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when the text contains no fenced block and no
// balanced object span.
var ErrNoJSON = errors.New("no JSON object found")

// Extract returns the first JSON object found in text. A fenced ```json block
// wins over a bare brace-matched span. A candidate that fails json.Valid goes
// through Repair once before being rejected.
func Extract(text string) (string, error) {
	var candidates []string
	if fenced, ok := fencedBlock(text); ok {
		candidates = append(candidates, fenced)
	}
	if span, ok := braceSpan(text); ok {
		candidates = append(candidates, span)
	}
	if len(candidates) == 0 {
		return "", ErrNoJSON
	}

	for _, c := range candidates {
		if json.Valid([]byte(c)) {
			return c, nil
		}
	}
	for _, c := range candidates {
		if repaired := Repair(c); json.Valid([]byte(repaired)) {
			return repaired, nil
		}
	}
	return "", errors.New("extract json: candidate is not valid JSON and could not be repaired")
}

// Repair fixes the common almost-JSON mistakes in model output: single-quoted
// strings, unquoted object keys, and trailing commas before a closing bracket.
// It never invents or reorders structure, so structurally broken input still
// fails validation afterwards.
func Repair(s string) string {
	s = replaceSingleQuotes(s)
	s = quoteBareKeys(s)
	s = stripTrailingCommas(s)
	return s
}

// fencedBlock returns the contents of the first markdown code fence,
// preferring a ```json fence over a plain one.
func fencedBlock(text string) (string, bool) {
	for _, marker := range []string{"```json", "```"} {
		start := strings.Index(text, marker)
		if start == -1 {
			continue
		}
		rest := text[start+len(marker):]
		end := strings.Index(rest, "```")
		if end == -1 {
			continue
		}
		return strings.TrimSpace(rest[:end]), true
	}
	return "", false
}

// braceSpan returns the first balanced {...} span. Braces inside string
// literals do not count toward the balance.
func braceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func replaceSingleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inDouble := false
	inSingle := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inDouble:
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inDouble = false
			}
		case inSingle:
			switch {
			case escaped:
				escaped = false
				if c == '\'' {
					// \' has no meaning in JSON, the quote stands alone
					b.WriteByte('\'')
				} else {
					b.WriteByte('\\')
					b.WriteByte(c)
				}
			case c == '\\':
				escaped = true
			case c == '\'':
				inSingle = false
				b.WriteByte('"')
			case c == '"':
				b.WriteString(`\"`)
			default:
				b.WriteByte(c)
			}
		case c == '"':
			inDouble = true
			b.WriteByte(c)
		case c == '\'':
			inSingle = true
			b.WriteByte('"')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// quoteBareKeys wraps bare identifiers followed by a colon in double quotes.
// In valid JSON nothing outside a string precedes a colon, so the lookahead
// cannot misfire on values like true or null.
func quoteBareKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	escaped := false
	for i := 0; i < len(s); {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			i++
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			i++
			continue
		}
		if isIdentStart(c) {
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			k := j
			for k < len(s) && isSpace(s[k]) {
				k++
			}
			if k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
			} else {
				b.WriteString(s[i:j])
			}
			i = j
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
