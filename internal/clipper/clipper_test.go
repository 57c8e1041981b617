package clipper

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samvad-hq/notion-blocks/pkg/httpclient"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }

// stubHTTPClient returns a single response and records the request headers.
type stubHTTPClient struct {
	resp    httpclient.Response
	err     error
	headers map[string]string
}

func (s *stubHTTPClient) Get(_ context.Context, _ string, headers map[string]string) (httpclient.Response, error) {
	s.headers = headers
	return s.resp, s.err
}

func TestParseMetaPrefersOGTags(t *testing.T) {
	html := []byte(`
<html>
  <head>
    <title>Fallback</title>
    <meta property="og:title" content="OG Title">
    <meta property="og:description" content="OG Desc">
    <meta property="og:image" content="/img/og.png">
  </head>
</html>`)

	meta, err := parseMeta(html)
	if err != nil {
		t.Fatalf("parseMeta: %v", err)
	}
	if meta.Title != "OG Title" || meta.Description != "OG Desc" || meta.ImageURL != "/img/og.png" {
		t.Fatalf("unexpected meta %#v", meta)
	}
}

func TestParseMetaFallsBack(t *testing.T) {
	html := []byte(`<html><head><title> Plain </title><meta name="description" content="Desc"></head></html>`)

	meta, err := parseMeta(html)
	if err != nil {
		t.Fatalf("parseMeta: %v", err)
	}
	if meta.Title != "Plain" || meta.Description != "Desc" || meta.ImageURL != "" {
		t.Fatalf("unexpected meta %#v", meta)
	}
}

func TestResolveURLHandlesRelative(t *testing.T) {
	got := resolveURL("/img.png", "https://example.com/articles/1")
	if got != "https://example.com/img.png" {
		t.Fatalf("resolveURL got %q", got)
	}
	if got := resolveURL("https://cdn.example.com/a.png", "https://example.com"); got != "https://cdn.example.com/a.png" {
		t.Fatalf("absolute url changed: %q", got)
	}
	if got := resolveURL("", "https://example.com"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestFetchExtractsAndResolves(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{
		statusCode: 200,
		body:       []byte(`<html><head><title>T</title><meta property="og:image" content="pic.png"></head></html>`),
	}}

	clip, err := New(client, "test-agent").Fetch(context.Background(), "https://example.com/posts/1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if clip.Title != "T" || clip.ImageURL != "https://example.com/posts/pic.png" {
		t.Fatalf("unexpected clip %#v", clip)
	}
	if client.headers["User-Agent"] != "test-agent" {
		t.Fatalf("user agent header not sent: %#v", client.headers)
	}
}

func TestFetchLimitsBody(t *testing.T) {
	body := bytes.Repeat([]byte("a"), maxHTMLBodyBytes+10)
	client := &stubHTTPClient{resp: stubHTTPResponse{body: body, statusCode: 200}}

	clip, err := New(client, "").Fetch(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !clip.Empty() {
		t.Fatalf("expected empty clip because body had no metadata, got %#v", clip)
	}
	if client.headers["User-Agent"] != DefaultUserAgent {
		t.Fatalf("expected default user agent, got %q", client.headers["User-Agent"])
	}
}

func TestFetchErrors(t *testing.T) {
	c := New(&stubHTTPClient{resp: stubHTTPResponse{statusCode: 404, body: []byte("not here")}}, "")
	_, err := c.Fetch(context.Background(), "https://example.com")
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected status error, got %v", err)
	}

	c = New(&stubHTTPClient{err: errors.New("dial failed")}, "")
	if _, err := c.Fetch(context.Background(), "https://example.com"); err == nil {
		t.Fatalf("expected transport error")
	}

	if _, err := c.Fetch(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", " ", "foo", "bar"); got != "foo" {
		t.Fatalf("firstNonEmpty returned %q", got)
	}
}
