package publishers

import (
	"context"
	"fmt"
	"io"
)

// queuePublisher implements Publisher on top of a queue backend sender.
type queuePublisher struct {
	id      string
	backend string
	sender  sender
	log     Logger
}

func newQueuePublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("publisher %q missing queue configuration", cfg.ID)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		s   sender
		err error
	)
	switch cfg.Queue.Backend {
	case BackendSQS:
		if cfg.Queue.SQS == nil {
			return nil, fmt.Errorf("publisher %q missing sqs configuration", cfg.ID)
		}
		s, err = newAWSSQSSender(ctx, cfg.Queue.SQS, log)
	case BackendSNS:
		if cfg.Queue.SNS == nil {
			return nil, fmt.Errorf("publisher %q missing sns configuration", cfg.ID)
		}
		s, err = newAWSSNSSender(ctx, cfg.Queue.SNS, log)
	case BackendPubSub:
		s, err = newGCPPubSubSender(ctx, cfg.Queue.PubSub, log)
	default:
		return nil, fmt.Errorf("publisher %q: unsupported queue backend %q", cfg.ID, cfg.Queue.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}

	return &queuePublisher{
		id:      cfg.ID,
		backend: cfg.Queue.Backend,
		sender:  s,
		log:     ensureLogger(log),
	}, nil
}

func (q *queuePublisher) ID() string   { return q.id }
func (q *queuePublisher) Type() string { return TypeQueue }

// Publish hands the event to the backend sender.
func (q *queuePublisher) Publish(ctx context.Context, evt Event) error {
	if err := q.sender.Send(ctx, evt); err != nil {
		return fmt.Errorf("%s: %w", q.backend, err)
	}
	q.log.DebugObj("queue publisher delivered event", "publisher_queue_delivery", map[string]any{
		"publisher_id": q.id,
		"backend":      q.backend,
		"action":       evt.Action,
	})
	return nil
}

// Close releases the sender if it holds a connection.
func (q *queuePublisher) Close() error {
	if c, ok := q.sender.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
