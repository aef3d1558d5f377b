package transcript

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yanqian/content-digest/internal/domain/digest"
)

const maxTranscriptBytes = 2 << 20

// Placeholder returns a clearly labelled stand-in transcript. It keeps the
// youtube input type usable when no transcript API is configured.
type Placeholder struct{}

// Transcript implements digest.TranscriptProvider.
func (Placeholder) Transcript(_ context.Context, videoID string) (string, error) {
	return fmt.Sprintf("[Placeholder transcript for YouTube video %s] "+
		"No transcript provider is configured, so this text stands in for the real captions. "+
		"Configure a transcript API to summarize the actual video content.", videoID), nil
}

// APIProvider fetches transcripts from an HTTP transcript service that
// accepts url, api_key and text query parameters and answers with plain text.
type APIProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// NewAPIProvider builds an APIProvider. Timeouts come from the caller's context.
func NewAPIProvider(endpoint, apiKey string, client *http.Client, logger *slog.Logger) *APIProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
		logger:   logger.With("component", "transcript.api"),
	}
}

// Transcript implements digest.TranscriptProvider.
func (p *APIProvider) Transcript(ctx context.Context, videoID string) (string, error) {
	endpoint, err := url.Parse(p.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse transcript endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", "https://www.youtube.com/watch?v="+videoID)
	q.Set("api_key", p.apiKey)
	q.Set("text", "true")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build transcript request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.logger.Warn("transcript request failed", "video_id", videoID, "status", resp.StatusCode)
		return "", &digest.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptBytes))
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	p.logger.Debug("transcript fetched", "video_id", videoID, "bytes", len(body))
	return string(body), nil
}
