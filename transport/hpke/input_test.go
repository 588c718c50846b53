package hpke

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestFromRequestPreservesMethodHeaderBodyAndSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://enclave.example.com/v1/echo", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.Header.Set("X-Trace-Id", "abc")

	input, err := FromRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if input.method() != http.MethodPost {
		t.Errorf("expected method to survive clone, got %q", input.method())
	}
	if input.header().Get("X-Trace-Id") != "abc" {
		t.Errorf("expected header to survive clone, got %q", input.header().Get("X-Trace-Id"))
	}

	body, err := io.ReadAll(input.body())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("expected body to survive clone, got %q", body)
	}

	signal := input.signal()
	if signal == nil {
		t.Fatalf("expected a cancellation signal")
	}
	select {
	case <-signal:
		t.Fatalf("signal fired before cancellation")
	default:
	}

	cancel()
	select {
	case <-signal:
	default:
		t.Fatalf("expected signal to fire after cancellation")
	}
}

func TestFromRequestOverrideAppliesCallerFieldsOnTop(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://enclave.example.com/v1/echo", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.Header.Set("X-Trace-Id", "abc")

	input, err := FromRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	overridden := input.Override(&PreparedInput{Method: http.MethodPut, Body: strings.NewReader("new body")})

	if overridden.method() != http.MethodPut {
		t.Errorf("expected overridden method, got %q", overridden.method())
	}
	if overridden.header().Get("X-Trace-Id") != "abc" {
		t.Errorf("expected cloned header to survive an unrelated override")
	}

	body, err := io.ReadAll(overridden.body())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "new body" {
		t.Errorf("expected overridden body, got %q", body)
	}
}
