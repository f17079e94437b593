package jsonx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBareObject(t *testing.T) {
	out, err := Extract(`{"a": 1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, out)
}

func TestExtractPrefersFencedBlock(t *testing.T) {
	text := "An earlier object {\"bare\": 1} and then:\n```json\n{\"fenced\": true}\n```\ndone"
	out, err := Extract(text)
	require.NoError(t, err)
	assert.Equal(t, `{"fenced": true}`, out)
}

func TestExtractPlainFence(t *testing.T) {
	out, err := Extract("```\n{\"a\": 2}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 2}`, out)
}

func TestExtractBraceSpanFromProse(t *testing.T) {
	out, err := Extract(`Here is the piece: {"title": "Etude", "meta": {"bpm": 120}} and a closing remark.`)
	require.NoError(t, err)
	assert.Equal(t, `{"title": "Etude", "meta": {"bpm": 120}}`, out)
}

func TestExtractIgnoresBracesInsideStrings(t *testing.T) {
	out, err := Extract(`prefix {"text": "a closing } brace and a quote \" too", "n": 1} suffix`)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
	assert.Contains(t, out, `"n": 1`)
}

func TestExtractRepairsTrailingCommas(t *testing.T) {
	out, err := Extract("```json\n{\"a\": [1, 2,],}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"a": [1, 2]}`, out)
}

func TestExtractRepairsQuotesAndKeys(t *testing.T) {
	out, err := Extract(`{title: 'Night Etude', bpm: 90}`)
	require.NoError(t, err)
	assert.Equal(t, `{"title": "Night Etude", "bpm": 90}`, out)
}

func TestExtractNoObject(t *testing.T) {
	_, err := Extract("no structured output here")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestExtractUnclosedObject(t *testing.T) {
	_, err := Extract(`{"a": 1`)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestExtractRejectsUnrepairable(t *testing.T) {
	_, err := Extract("```json\n{\"a\": }\n```")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoJSON)
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "valid input unchanged",
			in:   `{"a": "it's, fine: {yes}", "b": [1, 2]}`,
			want: `{"a": "it's, fine: {yes}", "b": [1, 2]}`,
		},
		{
			name: "trailing comma in object",
			in:   `{"a": 1,}`,
			want: `{"a": 1}`,
		},
		{
			name: "trailing comma before newline",
			in:   "{\"a\": 1,\n}",
			want: "{\"a\": 1\n}",
		},
		{
			name: "single quoted strings",
			in:   `{'msg': 'don\'t stop'}`,
			want: `{"msg": "don't stop"}`,
		},
		{
			name: "double quote inside single quoted string",
			in:   `{'say': 'a "word"'}`,
			want: `{"say": "a \"word\""}`,
		},
		{
			name: "bare keys",
			in:   `{title: "x", bar_count: 2}`,
			want: `{"title": "x", "bar_count": 2}`,
		},
		{
			name: "bare values untouched",
			in:   `{"a": true, "b": null}`,
			want: `{"a": true, "b": null}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Repair(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)))
		})
	}
}
