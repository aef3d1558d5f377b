package extract

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/content-digest/internal/domain/digest"
)

var paragraph = strings.Repeat("Go programs are built from packages that compile quickly into static binaries. ", 4)

func articlePage() string {
	return `<!doctype html>
<html>
<head>
  <title>Fallback Title</title>
  <meta property="og:title" content="Why Go Works">
  <meta property="og:site_name" content="Example Blog">
  <script>var tracking = "SECRET_TRACKER";</script>
</head>
<body>
  <nav><a href="/">Home</a> <a href="/about">NAVIGATION_LINK</a></nav>
  <div class="sidebar">SIDEBAR_TEXT</div>
  <article>
    <h1>Why Go Works</h1>
    <p>` + paragraph + `</p>
    <div class="ad">BUY_NOW_AD</div>
    <p>Second paragraph with <a href="#">a link</a> inside.</p>
  </article>
  <footer>FOOTER_TEXT</footer>
</body>
</html>`
}

func TestExtractArticle(t *testing.T) {
	t.Parallel()

	target, _ := url.Parse("https://example.com/post")
	page, err := Extract([]byte(articlePage()), target)
	require.NoError(t, err)

	require.Equal(t, "Why Go Works", page.Title)
	require.Equal(t, "Example Blog", page.SiteName)
	require.Contains(t, page.Text, "Go programs are built from packages")
	require.Contains(t, page.Text, "Second paragraph with a link inside.")
	for _, noise := range []string{"SECRET_TRACKER", "NAVIGATION_LINK", "SIDEBAR_TEXT", "BUY_NOW_AD", "FOOTER_TEXT"} {
		require.NotContains(t, page.Text, noise)
	}
}

func TestExtractPrefersHighestScoringCandidate(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<main><p>` + paragraph + `</p><p>` + paragraph + `</p><p>MAIN_ONLY</p></main>
<div class="content"><p>` + paragraph + `</p></div>
</body></html>`

	page, err := Extract([]byte(html), nil)
	require.NoError(t, err)
	require.Contains(t, page.Text, "MAIN_ONLY")
}

func TestExtractBodyFallback(t *testing.T) {
	t.Parallel()

	html := `<html><head><title> Plain   Page </title></head><body><div>Short intro.</div><div>Another short block.</div></body></html>`
	target, _ := url.Parse("https://example.com/plain")
	page, err := Extract([]byte(html), target)
	require.NoError(t, err)
	require.Equal(t, "Plain Page", page.Title)
	require.Equal(t, "Short intro.\nAnother short block.", page.Text)
}

func TestNodeTextSeparatesBlocks(t *testing.T) {
	t.Parallel()

	page, err := Extract([]byte(`<html><body><h2>Heading</h2><p>Body</p><ul><li>one</li><li>two</li></ul></body></html>`), nil)
	require.NoError(t, err)
	require.Equal(t, "Heading\nBody\none\ntwo", page.Text)
}

func newTestFetcher() *Fetcher {
	return NewFetcher(Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetch(t *testing.T) {
	t.Parallel()

	var userAgent, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/post", http.StatusMovedPermanently)
			return
		}
		userAgent = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, articlePage())
	}))
	defer srv.Close()

	target, _ := url.Parse(srv.URL + "/old")
	page, err := newTestFetcher().Fetch(context.Background(), target)
	require.NoError(t, err)

	require.Equal(t, "Why Go Works", page.Title)
	require.Equal(t, srv.URL+"/post", page.FinalURL)
	require.Contains(t, page.Text, "static binaries")
	require.Equal(t, defaultUserAgent, userAgent)
	require.Contains(t, accept, "text/html")
}

func TestFetchPlainText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "<p>not html</p>")
	}))
	defer srv.Close()

	target, _ := url.Parse(srv.URL)
	page, err := newTestFetcher().Fetch(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, "<p>not html</p>", page.Text)
}

func TestFetchStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	target, _ := url.Parse(srv.URL)
	_, err := newTestFetcher().Fetch(context.Background(), target)
	require.Error(t, err)

	var statusErr *digest.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	require.Equal(t, "gone", statusErr.Body)
}

func TestFetchLimitsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, strings.Repeat("a", 4096))
	}))
	defer srv.Close()

	fetcher := NewFetcher(Options{MaxBodyBytes: 100}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	target, _ := url.Parse(srv.URL)
	page, err := fetcher.Fetch(context.Background(), target)
	require.NoError(t, err)
	require.Len(t, page.Text, 100)
}

func TestExtractWithoutKnownContainer(t *testing.T) {
	t.Parallel()

	html := `<html><body><div id="story"><p>` + paragraph + `</p><p>` + paragraph + `</p></div><div class="byline">Staff</div></body></html>`
	target, _ := url.Parse("https://example.com/story")
	page, err := Extract([]byte(html), target)
	require.NoError(t, err)
	require.Contains(t, page.Text, "compile quickly into static binaries")
}

func TestExtractKeepsContentInsideForm(t *testing.T) {
	t.Parallel()

	html := `<html><body><form id="aspnetForm" method="post"><input type="hidden" name="__VIEWSTATE" value="x">` +
		`<div class="post-content"><p>` + paragraph + `</p></div><select><option>SELECT_OPTION</option></select></form></body></html>`
	target, _ := url.Parse("https://example.com/default.aspx")
	page, err := Extract([]byte(html), target)
	require.NoError(t, err)
	require.Contains(t, page.Text, "compile quickly into static binaries")
	require.NotContains(t, page.Text, "SELECT_OPTION")
}

func TestFetchDecodesCharset(t *testing.T) {
	t.Parallel()

	latin1Body := "<html><head>%s</head><body><article><p>Caf\xe9 cr\xe8me. " + paragraph + "</p></article></body></html>"
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{
			name:        "charset in content type",
			contentType: "text/html; charset=ISO-8859-1",
			body:        strings.Replace(latin1Body, "%s", "", 1),
		},
		{
			name:        "charset in meta tag",
			contentType: "text/html",
			body:        strings.Replace(latin1Body, "%s", `<meta charset="windows-1252">`, 1),
		},
		{
			name:        "utf-8 passes through",
			contentType: "text/html; charset=utf-8",
			body:        "<html><body><article><p>Café crème. " + paragraph + "</p></article></body></html>",
		},
		{
			name:        "plain text",
			contentType: "text/plain; charset=windows-1252",
			body:        "Caf\xe9 cr\xe8me.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			target, _ := url.Parse(srv.URL)
			page, err := newTestFetcher().Fetch(context.Background(), target)
			require.NoError(t, err)
			require.Contains(t, page.Text, "Café crème.")
		})
	}
}

func TestFetchEmptyBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
	}))
	defer srv.Close()

	target, _ := url.Parse(srv.URL)
	page, err := newTestFetcher().Fetch(context.Background(), target)
	require.NoError(t, err)
	require.Empty(t, page.Text)
}
