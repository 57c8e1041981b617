package notion

import (
	"context"
	"net/http"
	"net/url"
)

const resultsKey = "results"

// GetBlock retrieves a single block.
func (c *Client) GetBlock(ctx context.Context, blockID string) (Envelope, error) {
	return c.do(ctx, http.MethodGet, blockPath(blockID), nil, nil, "")
}

// GetBlockChildren lists the children of a block. On success the envelope
// holds the "results" sequence, not the list object around it.
func (c *Client) GetBlockChildren(ctx context.Context, blockID string) (Envelope, error) {
	return c.do(ctx, http.MethodGet, childrenPath(blockID), nil, nil, resultsKey)
}

// UpdateBlock replaces a block's content with the given block body.
func (c *Client) UpdateBlock(ctx context.Context, blockID string, content Block) (Envelope, error) {
	return c.do(ctx, http.MethodPatch, blockPath(blockID), nil, content, "")
}

// AppendChildBlocks appends children under parentID.
func (c *Client) AppendChildBlocks(ctx context.Context, parentID string, children []Block) (Envelope, error) {
	if children == nil {
		children = []Block{}
	}
	body := map[string]any{"children": children}
	return c.do(ctx, http.MethodPatch, childrenPath(parentID), nil, body, "")
}

// DeleteBlock archives a block.
func (c *Client) DeleteBlock(ctx context.Context, blockID string) (Envelope, error) {
	return c.do(ctx, http.MethodDelete, blockPath(blockID), nil, nil, "")
}

func blockPath(id string) string    { return "/blocks/" + url.PathEscape(id) }
func childrenPath(id string) string { return blockPath(id) + "/children" }
