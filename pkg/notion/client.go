// Package notion is a thin client for the Notion REST API. Every operation
// issues one request and returns an Envelope holding either the decoded
// payload or a {code, error} failure record.
package notion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/notion-blocks/pkg/httpclient"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2021-05-13"
	DefaultTimeout = 30 * time.Second

	// MaxPageSize is the most results the API returns in one listing.
	MaxPageSize = 100
)

// ErrEmptyToken is returned by New when no bearer token is supplied.
var ErrEmptyToken = errors.New("notion token is empty")

// Client holds immutable configuration only and is safe for concurrent use.
type Client struct {
	baseURL     string
	version     string
	richTextKey string
	headers     map[string]string
	http        httpclient.Requester
	log         Logger
}

type options struct {
	baseURL   string
	version   string
	timeout   time.Duration
	requester httpclient.Requester
	log       Logger
}

// Option customises a Client at construction.
type Option func(*options)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithVersion overrides the Notion-Version header.
func WithVersion(v string) Option { return func(o *options) { o.version = v } }

// WithTimeout sets the timeout of the default transport. Ignored with WithRequester.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithRequester replaces the HTTP transport.
func WithRequester(r httpclient.Requester) Option { return func(o *options) { o.requester = r } }

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l Logger) Option { return func(o *options) { o.log = l } }

// New builds a client for the given bearer token.
func New(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}

	o := options{
		baseURL: DefaultBaseURL,
		version: DefaultVersion,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	o.baseURL = strings.TrimRight(strings.TrimSpace(o.baseURL), "/")
	if o.baseURL == "" {
		return nil, fmt.Errorf("notion base url is empty")
	}
	if strings.TrimSpace(o.version) == "" {
		o.version = DefaultVersion
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	if o.requester == nil {
		o.requester = httpclient.NewRestyClient(o.timeout)
	}

	return &Client{
		baseURL:     o.baseURL,
		version:     o.version,
		richTextKey: richTextKeyFor(o.version),
		headers: map[string]string{
			"Notion-Version": o.version,
			"Authorization":  "Bearer " + token,
			"Content-Type":   "application/json",
		},
		http: o.requester,
		log:  ensureLogger(o.log),
	}, nil
}

// Version returns the Notion-Version header value.
func (c *Client) Version() string { return c.version }

// Paragraph builds a paragraph block using the rich text key of the
// client's API version.
func (c *Client) Paragraph(text string) Block {
	return newParagraph(c.richTextKey, text)
}

// do issues one request and normalizes the response.
func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body any, key string) (Envelope, error) {
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  method,
		URL:     c.baseURL + path,
		Headers: c.headerSet(),
		Query:   query,
		Body:    body,
	})
	if err != nil {
		return Envelope{}, fmt.Errorf("%s %s: %w", method, path, err)
	}

	c.log.DebugObj("notion request completed", "notion_request", map[string]any{
		"method": method,
		"path":   path,
		"status": resp.StatusCode(),
	})

	env, err := Normalize(resp.StatusCode(), resp.Body(), key)
	if err != nil {
		return Envelope{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !env.OK() {
		c.log.DebugObj("notion request failed", "notion_failure", map[string]any{
			"method": method,
			"path":   path,
			"code":   env.Failure.Code,
			"error":  env.Failure.Message,
		})
	}
	return env, nil
}

// headerSet hands the transport a copy so the fixed set can never be mutated.
func (c *Client) headerSet() map[string]string {
	out := make(map[string]string, len(c.headers))
	for k, v := range c.headers {
		out[k] = v
	}
	return out
}
