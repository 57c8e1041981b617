package app

import (
	"context"

	"github.com/samvad-hq/notion-blocks/internal/domain"
	"github.com/samvad-hq/notion-blocks/pkg/publishers"
)

// EventPublisher publishes block change events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
	Close() error
}

// PageClipper extracts metadata from a web page.
type PageClipper interface {
	Fetch(ctx context.Context, url string) (domain.Clip, error)
}
