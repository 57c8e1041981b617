package notion

import (
	"context"
	"net/http"
	"net/url"
)

// SearchPages searches the workspace. A non-empty title is sent unchanged as
// the "query" URL parameter rather than in a JSON body. An empty title sends
// no query and lists every page the token can see.
func (c *Client) SearchPages(ctx context.Context, title string) (Envelope, error) {
	var query map[string]string
	if title != "" {
		query = map[string]string{"query": title}
	}
	return c.do(ctx, http.MethodPost, "/search", query, nil, "")
}

// GetPage retrieves a page object.
func (c *Client) GetPage(ctx context.Context, pageID string) (Envelope, error) {
	return c.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, nil, "")
}

// GetPageChildren lists the top-level blocks of a page.
func (c *Client) GetPageChildren(ctx context.Context, pageID string) (Envelope, error) {
	return c.GetBlockChildren(ctx, pageID)
}
