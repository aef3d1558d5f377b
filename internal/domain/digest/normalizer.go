package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	labelYouTube     = "YouTube Video"
	labelDirectInput = "Direct Input"
	truncationMarker = " ... [content truncated]"
)

// Normalizer turns raw input into clean text under size constraints.
type Normalizer struct {
	cfg         Config
	fetcher     ContentFetcher
	transcripts TranscriptProvider
	languages   LanguageDetector
	logger      *slog.Logger
}

// NewNormalizer wires the normalizer. languages may be nil.
func NewNormalizer(cfg Config, fetcher ContentFetcher, transcripts TranscriptProvider, languages LanguageDetector, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		cfg:         cfg.withDefaults(),
		fetcher:     fetcher,
		transcripts: transcripts,
		languages:   languages,
		logger:      logger.With("component", "digest.normalizer"),
	}
}

// Normalize produces clean plain text for content of the given input type.
func (n *Normalizer) Normalize(ctx context.Context, content string, inputType InputType) (NormalizedContent, error) {
	var (
		out NormalizedContent
		err error
	)
	switch inputType {
	case InputURL:
		out, err = n.fromURL(ctx, content)
	case InputYouTube:
		out, err = n.fromYouTube(ctx, content)
	case InputUpload:
		out = NormalizedContent{Text: content, SourceLabel: labelDirectInput}
	default:
		return NormalizedContent{}, newError(CodeInvalidInputType, "inputType must be one of url, youtube, upload", nil)
	}
	if err != nil {
		return NormalizedContent{}, err
	}

	out.Text = collapseWhitespace(out.Text)
	if utf8.RuneCountInString(out.Text) < n.cfg.MinContentChars {
		return NormalizedContent{}, insufficientContent(inputType)
	}
	out.Text, out.Truncated = truncateRunes(out.Text, n.cfg.MaxContentChars)
	if out.Truncated {
		n.logger.Info("normalized content truncated", "input_type", inputType, "limit", n.cfg.MaxContentChars)
	}
	if n.languages != nil {
		if lang, ok := n.languages.Detect(out.Text); ok {
			out.Language = lang
		}
	}
	return out, nil
}

func (n *Normalizer) fromURL(ctx context.Context, raw string) (NormalizedContent, error) {
	target, err := parseHTTPURL(raw)
	if err != nil {
		return NormalizedContent{}, newError(CodeInvalidURL, "invalid URL: provide an absolute http(s) address", err)
	}
	if n.fetcher == nil {
		return NormalizedContent{}, newError(CodeFetchFailed, "web page extraction is not available", nil)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, n.cfg.FetchTimeout)
	defer cancel()

	page, err := n.fetcher.Fetch(fetchCtx, target)
	if err != nil {
		return NormalizedContent{}, classifyFetchError(ctx, fetchCtx, err, "the page")
	}

	domain := strings.TrimPrefix(strings.ToLower(target.Hostname()), "www.")
	title := strings.TrimSpace(page.Title)
	if title == "" {
		title = strings.TrimSpace(page.SiteName)
	}
	source := target.String()
	if page.FinalURL != "" {
		source = page.FinalURL
	}
	n.logger.Debug("page fetched", "domain", domain, "chars", len(page.Text))
	return NormalizedContent{
		Text:        page.Text,
		SourceLabel: domain,
		Title:       title,
		Domain:      domain,
		URL:         source,
	}, nil
}

func (n *Normalizer) fromYouTube(ctx context.Context, raw string) (NormalizedContent, error) {
	videoID, ok := ExtractVideoID(raw)
	if !ok {
		return NormalizedContent{}, newError(CodeInvalidYouTubeURL, "invalid YouTube URL: could not find a video id", nil)
	}
	if n.transcripts == nil {
		return NormalizedContent{}, newError(CodeFetchFailed, "video transcripts are not available", nil)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, n.cfg.FetchTimeout)
	defer cancel()

	transcript, err := n.transcripts.Transcript(fetchCtx, videoID)
	if err != nil {
		return NormalizedContent{}, classifyFetchError(ctx, fetchCtx, err, "the video transcript")
	}
	return NormalizedContent{
		Text:        transcript,
		SourceLabel: labelYouTube,
		Title:       labelYouTube,
		Domain:      "youtube.com",
		URL:         "https://www.youtube.com/watch?v=" + videoID,
		VideoID:     videoID,
	}, nil
}

func classifyFetchError(parent, bounded context.Context, err error, what string) error {
	if parent.Err() != nil {
		return newError(CodeCancelled, "request was cancelled", err)
	}
	if errors.Is(bounded.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return newError(CodeTimeout, fmt.Sprintf("timed out while fetching %s; try again or paste the text directly", what), err)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return newError(CodeFetchFailed, fmt.Sprintf("failed to fetch %s (status %d); check the URL and try again", what, statusErr.StatusCode), err)
	}
	return newError(CodeFetchFailed, fmt.Sprintf("failed to fetch %s; check the URL and try again", what), err)
}

func insufficientContent(inputType InputType) error {
	switch inputType {
	case InputURL:
		return newError(CodeInsufficientContent, "not enough readable content on this page; it may be behind a paywall or require JavaScript to render", nil)
	case InputYouTube:
		return newError(CodeInsufficientContent, "the video transcript is too short to summarize", nil)
	default:
		return newError(CodeInsufficientContent, "the text is too short to summarize", nil)
	}
}

func parseHTTPURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, errors.New("url must be absolute")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	return parsed, nil
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncateRunes(text string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])) + truncationMarker, true
}
