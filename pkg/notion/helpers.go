package notion

import (
	"context"
	"fmt"
)

// TextAppend appends a paragraph holding text as a child of parentID.
func (c *Client) TextAppend(ctx context.Context, parentID, text string) (Envelope, error) {
	return c.AppendChildBlocks(ctx, parentID, []Block{c.Paragraph(text)})
}

// TextSet fetches a block, rewrites its first rich text run and sends the
// whole block back. Non-text blocks yield the NotTextBlock record and no
// update is issued.
func (c *Client) TextSet(ctx context.Context, blockID, text string) (Envelope, error) {
	env, err := c.GetBlock(ctx, blockID)
	if err != nil || !env.OK() {
		return env, err
	}

	block, ok := env.Block()
	if !ok {
		return Envelope{}, fmt.Errorf("block %s: response is not an object", blockID)
	}
	if !IsTextType(block.Type()) {
		return Envelope{Failure: NotTextBlock()}, nil
	}
	if err := setText(block, text); err != nil {
		return Envelope{}, fmt.Errorf("block %s: %w", blockID, err)
	}
	return c.UpdateBlock(ctx, blockID, block)
}

// ImageAdd appends an external image block as a child of parentID. Existing
// image blocks cannot be updated in place; delete and re-add instead.
func (c *Client) ImageAdd(ctx context.Context, parentID, imageURL string) (Envelope, error) {
	return c.AppendChildBlocks(ctx, parentID, []Block{NewExternalImage(imageURL)})
}
