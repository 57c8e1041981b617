package notion

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNormalizeMessageIsFailureRegardlessOfKey(t *testing.T) {
	body := []byte(`{"object":"error","status":401,"code":"unauthorized","message":"Unauthorized"}`)

	for _, key := range []string{"", "results", "missing"} {
		env, err := Normalize(401, body, key)
		if err != nil {
			t.Fatalf("key %q: Normalize: %v", key, err)
		}
		if env.OK() {
			t.Fatalf("key %q: expected failure envelope", key)
		}
		if env.Failure.Code != 401 || env.Failure.Message != "Unauthorized" {
			t.Fatalf("key %q: unexpected failure %#v", key, env.Failure)
		}
		raw, err := json.Marshal(env)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(raw) != `{"code":401,"error":"Unauthorized"}` {
			t.Fatalf("key %q: wire shape %s", key, raw)
		}
	}
}

func TestNormalizeReturnsWholeBodyWithoutKey(t *testing.T) {
	env, err := Normalize(200, []byte(`{"id":"b1","type":"paragraph","has_children":false}`), "")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	block, ok := env.Block()
	if !ok {
		t.Fatalf("expected object payload, got %#v", env.Value)
	}
	if block.ID() != "b1" || block.Type() != TypeParagraph || block.HasChildren() {
		t.Fatalf("unexpected block %#v", block)
	}
}

func TestNormalizeExtractsKey(t *testing.T) {
	env, err := Normalize(200, []byte(`{"object":"list","results":[],"has_more":false}`), "results")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	blocks, ok := env.Blocks()
	if !ok {
		t.Fatalf("expected sequence payload, got %#v", env.Value)
	}
	if len(blocks) != 0 {
		t.Fatalf("expected empty sequence, got %d", len(blocks))
	}
}

func TestNormalizeMissingKeyIsError(t *testing.T) {
	_, err := Normalize(200, []byte(`{"object":"list"}`), "results")
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}

	_, err = Normalize(200, []byte(`[1,2]`), "results")
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey for non-object body, got %v", err)
	}
}

func TestNormalizeUndecodableBody(t *testing.T) {
	if _, err := Normalize(502, []byte("<html>bad gateway</html>"), ""); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := Normalize(204, nil, ""); err == nil {
		t.Fatalf("expected decode error for empty body")
	}
}

func TestNormalizeRejectsTrailingData(t *testing.T) {
	for _, body := range []string{`{"a":1} junk`, `{"a":1}{"b":2}`, `[1] 2`} {
		if _, err := Normalize(200, []byte(body), ""); err == nil {
			t.Fatalf("body %q: expected decode error", body)
		}
	}
	if _, err := Normalize(200, []byte("{\"a\":1}\n  "), ""); err != nil {
		t.Fatalf("trailing whitespace should be accepted: %v", err)
	}
}

func TestNormalizeNonStringMessage(t *testing.T) {
	env, err := Normalize(400, []byte(`{"message":42}`), "")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if env.Failure == nil || env.Failure.Message != "42" || env.Failure.Code != 400 {
		t.Fatalf("unexpected failure %#v", env.Failure)
	}
}

func TestNormalizePreservesNumbers(t *testing.T) {
	env, err := Normalize(200, []byte(`{"count":12345678901234567890}`), "")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"count":12345678901234567890}` {
		t.Fatalf("number not preserved: %s", raw)
	}
}

func TestEnvelopeAccessorsOnFailure(t *testing.T) {
	env := Envelope{Failure: NotTextBlock()}
	if env.OK() {
		t.Fatalf("failure envelope reported OK")
	}
	if _, ok := env.Block(); ok {
		t.Fatalf("Block on failure should be false")
	}
	if _, ok := env.Blocks(); ok {
		t.Fatalf("Blocks on failure should be false")
	}
	var apiErr *APIError
	if !errors.As(env.Err(), &apiErr) || apiErr.Code != 0 || apiErr.Message != "Not a text block" {
		t.Fatalf("unexpected Err %v", env.Err())
	}
	if (Envelope{Value: 1}).Err() != nil {
		t.Fatalf("Err on success should be nil")
	}
}
