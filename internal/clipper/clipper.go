package clipper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/notion-blocks/internal/domain"
	"github.com/samvad-hq/notion-blocks/pkg/httpclient"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	maxSnippetBytes  = 1024

	DefaultUserAgent = "notion-blocks/1.0"
	defaultTimeout   = 15 * time.Second
)

// Clipper fetches web pages and extracts metadata from OG tags.
type Clipper struct {
	client    httpclient.Client
	userAgent string
}

// New constructs a clipper with the provided HTTP client (or default).
func New(client httpclient.Client, userAgent string) *Clipper {
	if client == nil {
		client = httpclient.NewRestyClient(defaultTimeout)
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	return &Clipper{client: client, userAgent: userAgent}
}

// Fetch downloads pageURL and returns its title, description and image.
// Relative image URLs are resolved against pageURL.
func (c *Clipper) Fetch(ctx context.Context, pageURL string) (domain.Clip, error) {
	clip := domain.Clip{URL: strings.TrimSpace(pageURL)}
	if clip.URL == "" {
		return clip, fmt.Errorf("clip url is empty")
	}

	headers := map[string]string{
		"User-Agent": c.userAgent,
		"Accept":     "text/html,application/xhtml+xml",
	}
	resp, err := c.client.Get(ctx, clip.URL, headers)
	if err != nil {
		return clip, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > maxSnippetBytes {
			snippet = snippet[:maxSnippetBytes]
		}
		return clip, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return clip, err
	}
	clip.Title = meta.Title
	clip.Description = meta.Description
	clip.ImageURL = resolveURL(meta.ImageURL, clip.URL)

	return clip, nil
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	pm := pageMeta{}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	pm.Title = firstNonEmpty(
		extract(`meta[property="og:title"]`),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	pm.Description = firstNonEmpty(
		extract(`meta[property="og:description"]`),
		extract(`meta[name="description"]`),
	)
	pm.ImageURL = firstNonEmpty(
		extract(`meta[property="og:image"]`),
		extract(`meta[name="twitter:image"]`),
	)

	return pm, nil
}

type pageMeta struct {
	Title       string
	Description string
	ImageURL    string
}

// resolveURL makes ref absolute relative to base. Unparseable input is
// returned unchanged.
func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() {
		return refURL.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
