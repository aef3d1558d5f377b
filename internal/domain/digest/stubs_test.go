package digest

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubFetcher struct {
	page    FetchedPage
	err     error
	block   bool
	lastURL string
}

func (s *stubFetcher) Fetch(ctx context.Context, target *url.URL) (FetchedPage, error) {
	s.lastURL = target.String()
	if s.block {
		<-ctx.Done()
		return FetchedPage{}, ctx.Err()
	}
	return s.page, s.err
}

type stubTranscripts struct {
	text   string
	err    error
	lastID string
}

func (s *stubTranscripts) Transcript(_ context.Context, videoID string) (string, error) {
	s.lastID = videoID
	return s.text, s.err
}

type stubLanguages struct{ lang string }

func (s stubLanguages) Detect(string) (string, bool) {
	return s.lang, s.lang != ""
}

type stubGenerator struct {
	mu      sync.Mutex
	resp    GenerateResponse
	err     error
	block   bool
	calls   int
	lastReq GenerateRequest
}

func (s *stubGenerator) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	s.mu.Lock()
	s.calls++
	s.lastReq = req
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return GenerateResponse{}, ctx.Err()
	}
	return s.resp, s.err
}

type stubHistory struct {
	mu      sync.Mutex
	saved   []Result
	saveErr error
}

func (s *stubHistory) Save(_ context.Context, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, result)
	return nil
}

func (s *stubHistory) Get(_ context.Context, id string) (Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.saved {
		if r.ID == id {
			return r, true, nil
		}
	}
	return Result{}, false, nil
}

func (s *stubHistory) ListRecent(_ context.Context, limit int) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, 0, len(s.saved))
	for i := len(s.saved) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.saved[i])
	}
	return out, nil
}

type stubSnapshots struct {
	mu   sync.Mutex
	keys []string
}

func (s *stubSnapshots) Put(_ context.Context, key string, _ []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return nil
}
