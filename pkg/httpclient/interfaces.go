package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Request describes one outbound call. Query values are sent as URL
// parameters; Body, when non-nil, is encoded as JSON.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    any
}

// Client abstracts HTTP GETs so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// Requester issues requests with an arbitrary verb.
type Requester interface {
	Do(ctx context.Context, req Request) (Response, error)
}
