package gemini

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/content-digest/internal/domain/digest"
	"github.com/yanqian/content-digest/internal/infra/llm"
	apperrors "github.com/yanqian/content-digest/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(Options{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/",
		HTTPClient: srv.Client(),
		Retry:      llm.RetryPolicy{Attempts: 1},
	}, logger)
	return client
}

func testRequest() digest.GenerateRequest {
	return digest.GenerateRequest{
		Model:           "gemini-1.5-flash",
		Prompt:          "Summarize this.",
		Temperature:     0.3,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
	}
}

func TestGenerate(t *testing.T) {
	var (
		path   string
		apiKey string
		body   string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiKey = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "**TL;DR:** Done."}, {"text": " More."}]},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 4, "totalTokenCount": 16}
		}`)
	})

	resp, err := client.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "**TL;DR:** Done. More.", resp.Text)
	require.Equal(t, "STOP", resp.FinishReason)
	require.Equal(t, 12, resp.Usage.PromptTokens)
	require.Equal(t, 4, resp.Usage.CompletionTokens)
	require.Equal(t, 16, resp.Usage.TotalTokens)

	require.True(t, strings.HasSuffix(path, "models/gemini-1.5-flash:generateContent"), path)
	require.Equal(t, "test-key", apiKey)
	require.Contains(t, body, `"maxOutputTokens":1024`)
	require.Contains(t, body, "HARM_CATEGORY_HARASSMENT")
	require.Contains(t, body, "BLOCK_MEDIUM_AND_ABOVE")
	require.Contains(t, body, "Summarize this.")
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{
			name:   "quota",
			status: http.StatusTooManyRequests,
			body:   `{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`,
			code:   digest.CodeQuotaExceeded,
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"error": {"code": 400, "message": "Invalid argument", "status": "INVALID_ARGUMENT"}}`,
			code:   digest.CodeProviderError,
		},
		{
			name:   "prompt blocked",
			status: http.StatusOK,
			body:   `{"promptFeedback": {"blockReason": "SAFETY"}}`,
			code:   digest.CodeSafetyBlocked,
		},
		{
			name:   "candidate blocked",
			status: http.StatusOK,
			body:   `{"candidates": [{"finishReason": "SAFETY"}]}`,
			code:   digest.CodeSafetyBlocked,
		},
		{
			name:   "no text",
			status: http.StatusOK,
			body:   `{"candidates": [{"content": {"role": "model", "parts": []}, "finishReason": "STOP"}]}`,
			code:   digest.CodeEmptyResponse,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.Generate(context.Background(), testRequest())
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestGenerateWithoutKey(t *testing.T) {
	client := NewClient(Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := client.Generate(context.Background(), testRequest())
	require.True(t, apperrors.IsCode(err, digest.CodeNotConfigured))
}
