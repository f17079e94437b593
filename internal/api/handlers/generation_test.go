package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateValidation(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing brief and source",
			body:    `{}`,
			wantErr: "either brief or source is required",
		},
		{
			name:    "brief and source together",
			body:    `{"brief": {"description": "a nocturne"}, "source": ` + testDocument + `, "instruction": "slower"}`,
			wantErr: "mutually exclusive",
		},
		{
			name:    "source without instruction",
			body:    `{"source": ` + testDocument + `}`,
			wantErr: "instruction is required",
		},
		{
			name:    "invalid model",
			body:    `{"brief": {"description": "a nocturne"}, "model": "gpt-2"}`,
			wantErr: "Invalid model",
		},
		{
			name:    "invalid provider",
			body:    `{"brief": {"description": "a nocturne"}, "provider": "anthropic"}`,
			wantErr: "Invalid provider",
		},
		{
			name:    "invalid reasoning mode",
			body:    `{"brief": {"description": "a nocturne"}, "reasoning_mode": "extreme"}`,
			wantErr: "Invalid reasoning_mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodPost, "/api/v1/generate", []byte(tt.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantErr)
		})
	}
}

func TestGenerateRejectsInvalidSource(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := `{"source": {"bogus": true}, "instruction": "make it slower"}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/generate", []byte(body), "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "invalid source document")
}

func TestGenerateWithoutProviderCredentials(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := `{"brief": {"description": "a short pastoral sketch"}}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/generate", []byte(body), "application/json")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}

func TestGenerateStreamEmitsErrorEvent(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := `{"brief": {"description": "a short pastoral sketch"}}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/generate?stream=true", []byte(body), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, w.Body.String(), "data: ")
	assert.Contains(t, w.Body.String(), `"type":"error"`)
	assert.Contains(t, w.Body.String(), "not configured")
}
