package notion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMissingKey is returned when a successful response lacks the requested result key.
var ErrMissingKey = errors.New("response missing result key")

// APIError is the value-shaped failure record carried by an Envelope. Code is
// the HTTP status for remote failures and 0 for local validation failures.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion error (code %d): %s", e.Code, e.Message)
}

// NotTextBlock is the local validation failure returned by TextSet.
func NotTextBlock() *APIError {
	return &APIError{Code: 0, Message: "Not a text block"}
}

// Envelope is the uniform result of every client operation: either the
// decoded JSON payload or a failure record, never both.
type Envelope struct {
	Value   any
	Failure *APIError
}

// OK reports whether the envelope carries a payload rather than a failure.
func (e Envelope) OK() bool { return e.Failure == nil }

// Err returns the failure record as an error, or nil.
func (e Envelope) Err() error {
	if e.Failure == nil {
		return nil
	}
	return e.Failure
}

// Block returns the payload as a Block when it is a JSON object.
func (e Envelope) Block() (Block, bool) {
	if e.Failure != nil {
		return nil, false
	}
	m, ok := e.Value.(map[string]any)
	if !ok {
		return nil, false
	}
	return Block(m), true
}

// Page returns the payload as a Page when it is a JSON object.
func (e Envelope) Page() (Page, bool) {
	b, ok := e.Block()
	return Page(b), ok
}

// Blocks returns the payload as a sequence of blocks. Non-object entries are skipped.
func (e Envelope) Blocks() ([]Block, bool) {
	if e.Failure != nil {
		return nil, false
	}
	items, ok := e.Value.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Block, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Block(m))
		}
	}
	return out, true
}

// MarshalJSON renders the payload, or the {code, error} record on failure.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Failure != nil {
		return json.Marshal(e.Failure)
	}
	return json.Marshal(e.Value)
}

// Normalize decodes a response body and classifies it. A decoded object with
// a "message" field is a failure regardless of key. Otherwise the payload is
// the whole body, or body[key] when key is set.
//
// The "message" rule is a heuristic: a successful payload that happens to
// carry a top-level "message" field is reported as a failure.
func Normalize(status int, body []byte, key string) (Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return Envelope{}, fmt.Errorf("decode response (status %d): %w", status, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Envelope{}, fmt.Errorf("decode response (status %d): trailing data after JSON value", status)
	}

	obj, isObject := decoded.(map[string]any)
	if isObject {
		if msg, ok := obj["message"]; ok {
			return Envelope{Failure: &APIError{Code: status, Message: messageString(msg)}}, nil
		}
	}

	if key == "" {
		return Envelope{Value: decoded}, nil
	}
	if !isObject {
		return Envelope{}, fmt.Errorf("%w %q: body is not an object", ErrMissingKey, key)
	}
	val, ok := obj[key]
	if !ok {
		return Envelope{}, fmt.Errorf("%w %q", ErrMissingKey, key)
	}
	return Envelope{Value: val}, nil
}

func messageString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
