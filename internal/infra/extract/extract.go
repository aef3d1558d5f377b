package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/yanqian/content-digest/internal/domain/digest"
)

// minCandidateChars is the amount of text a container needs before it is
// preferred over readability and the body fallback.
const minCandidateChars = 200

var denylist = strings.Join([]string{
	"script", "style", "noscript", "template", "iframe", "svg", "canvas", "button", "select", "textarea",
	"nav", "header", "footer", "aside",
	"[role=navigation]", "[role=banner]", "[role=contentinfo]", "[role=complementary]", "[aria-hidden=true]",
	".ad", ".ads", ".advert", ".advertisement", ".sponsored", "[id^=google_ads]",
	".sidebar", "#sidebar", ".comments", "#comments", ".related", ".share", ".social",
	".newsletter", ".subscribe", ".cookie", ".cookie-banner", ".popup", ".modal", ".breadcrumb",
}, ", ")

// candidates are tried in order; the highest score wins.
var candidates = []string{
	"article",
	"[role=main]",
	"main",
	"[itemprop=articleBody]",
	".post-content",
	".entry-content",
	".article-content",
	".article-body",
	".story-body",
	".post-body",
	"#content",
	".content",
}

var blockTags = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "dd": true, "div": true,
	"dl": true, "dt": true, "figcaption": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "hr": true, "li": true, "main": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// Extract pulls the title and main text out of an HTML document.
func Extract(body []byte, pageURL *url.URL) (digest.FetchedPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return digest.FetchedPage{}, fmt.Errorf("parse html: %w", err)
	}

	page := digest.FetchedPage{
		Title:    pageTitle(doc),
		SiteName: metaContent(doc, "og:site_name"),
	}

	doc.Find(denylist).Remove()

	if text, ok := bestCandidate(doc); ok {
		page.Text = text
		return page, nil
	}

	if text, ok := readable(body, pageURL, &page); ok {
		page.Text = text
		return page, nil
	}

	page.Text = nodeText(doc.Find("body"))
	if page.Text == "" {
		page.Text = nodeText(doc.Selection)
	}
	return page, nil
}

// readable runs readability over the original markup and fills missing
// metadata on page.
func readable(body []byte, pageURL *url.URL, page *digest.FetchedPage) (string, bool) {
	if pageURL == nil {
		return "", false
	}
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", false
	}
	if page.Title == "" {
		page.Title = strings.TrimSpace(article.Title)
	}
	if page.SiteName == "" {
		page.SiteName = strings.TrimSpace(article.SiteName)
	}
	text := htmlText(article.Content)
	return text, runeLen(text) >= minCandidateChars
}

type scored struct {
	text  string
	score int
}

func bestCandidate(doc *goquery.Document) (string, bool) {
	var best scored
	for _, selector := range candidates {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := nodeText(sel)
			length := runeLen(text)
			if length < minCandidateChars {
				return
			}
			score := length + 100*sel.Find("p").Length()
			if score > best.score {
				best = scored{text: text, score: score}
			}
		})
	}
	return best.text, best.score > 0
}

func pageTitle(doc *goquery.Document) string {
	if title := metaContent(doc, "og:title"); title != "" {
		return title
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return collapse(title)
	}
	return collapse(doc.Find("h1").First().Text())
}

func metaContent(doc *goquery.Document, property string) string {
	value, _ := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, property, property)).First().Attr("content")
	return strings.TrimSpace(value)
}

func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	doc.Find(denylist).Remove()
	return nodeText(doc.Selection)
}

// nodeText concatenates text nodes, separating block elements with
// newlines so adjacent paragraphs do not run together.
func nodeText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		}
		block := n.Type == html.ElementNode && blockTags[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.TrimSpace(collapseLines(b.String()))
}

// collapseLines squeezes runs of spaces and blank lines.
func collapseLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = collapse(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func runeLen(text string) int {
	return utf8.RuneCountInString(text)
}
