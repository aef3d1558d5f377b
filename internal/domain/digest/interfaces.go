package digest

import (
	"context"
	"net/url"

	"github.com/yanqian/content-digest/pkg/metrics"
)

// FetchedPage is the readable part of a web page.
type FetchedPage struct {
	Title    string
	SiteName string
	FinalURL string
	Text     string
}

// ContentFetcher downloads a page and extracts its main text.
// Non-2xx responses are reported as *StatusError.
type ContentFetcher interface {
	Fetch(ctx context.Context, target *url.URL) (FetchedPage, error)
}

// TranscriptProvider returns the transcript of a YouTube video.
type TranscriptProvider interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

// LanguageDetector guesses the language of a text.
type LanguageDetector interface {
	Detect(text string) (string, bool)
}

// GenerateRequest is sent to the text generation provider.
type GenerateRequest struct {
	Model           string
	Prompt          string
	Temperature     float32
	TopK            int
	TopP            float32
	MaxOutputTokens int
}

// GenerateResponse is the raw provider output.
type GenerateResponse struct {
	Text         string
	FinishReason string
	Usage        metrics.TokenUsage
}

// TextGenerator calls a generative text API once.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// TokenCounter estimates prompt tokens when the provider reports no usage.
type TokenCounter interface {
	Count(text string) int
}

// HistoryRepository keeps completed digests for later retrieval.
type HistoryRepository interface {
	Save(ctx context.Context, result Result) error
	Get(ctx context.Context, id string) (Result, bool, error)
	ListRecent(ctx context.Context, limit int) ([]Result, error)
}

// SnapshotStore archives normalized source text.
type SnapshotStore interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) error
}
