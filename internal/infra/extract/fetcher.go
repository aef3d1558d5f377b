package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/yanqian/content-digest/internal/domain/digest"
)

const (
	defaultUserAgent    = "Mozilla/5.0 (compatible; ContentDigest/1.0; +https://github.com/yanqian/content-digest)"
	defaultAccept       = "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.5"
	defaultMaxBodyBytes = 5 << 20
	errorBodyBytes      = 512
)

// Options configures the HTTP fetcher.
type Options struct {
	UserAgent    string
	MaxBodyBytes int64
	HTTPClient   *http.Client
}

// Fetcher downloads web pages and extracts their readable text.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	logger    *slog.Logger
}

// NewFetcher builds a fetcher. Timeouts come from the caller's context.
func NewFetcher(opts Options, logger *slog.Logger) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Fetcher{
		client:    client,
		userAgent: ua,
		maxBody:   maxBody,
		logger:    logger.With("component", "extract.fetcher"),
	}
}

// Fetch performs one GET and returns the extracted page.
func (f *Fetcher) Fetch(ctx context.Context, target *url.URL) (digest.FetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return digest.FetchedPage{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", defaultAccept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return digest.FetchedPage{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyBytes))
		return digest.FetchedPage{}, &digest.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return digest.FetchedPage{}, fmt.Errorf("read page: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	body, err := decodeBody(raw, contentType)
	if err != nil {
		return digest.FetchedPage{}, err
	}

	pageURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		pageURL = resp.Request.URL
	}

	if isPlainText(contentType) {
		return digest.FetchedPage{FinalURL: pageURL.String(), Text: string(body)}, nil
	}

	page, err := Extract(body, pageURL)
	if err != nil {
		return digest.FetchedPage{}, err
	}
	page.FinalURL = pageURL.String()
	f.logger.Debug("page extracted", "url", page.FinalURL, "bytes", len(body), "chars", len(page.Text))
	return page, nil
}

// decodeBody converts the page to UTF-8 using the Content-Type charset, a
// byte order mark or a <meta> declaration, in that order.
func decodeBody(raw []byte, contentType string) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return decoded, nil
}

func isPlainText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/plain"
}
