package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveRouterEndpointPicksFromList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["https://a.example.com", "https://b.example.com"]`))
	}))
	t.Cleanup(srv.Close)

	endpoint, err := ResolveRouterEndpoint(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if endpoint != "https://a.example.com" && endpoint != "https://b.example.com" {
		t.Errorf("unexpected endpoint %q", endpoint)
	}
}

func TestResolveRouterEndpointRejectsEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	_, err := ResolveRouterEndpoint(context.Background(), srv.Client(), srv.URL)
	if err == nil {
		t.Fatalf("expected an error for an empty endpoint list")
	}
}

func TestNewUnverifiedWithRouterResolutionUsesResolvedEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["https://resolved.example.com"]`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewUnverifiedWithRouterResolution(context.Background(), srv.Client(), srv.URL, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.cfg.EnclaveURL != "https://resolved.example.com" {
		t.Errorf("expected resolved endpoint, got %q", c.cfg.EnclaveURL)
	}
	if c.cfg.BaseURL != "https://resolved.example.com/v1/" {
		t.Errorf("expected derived baseURL, got %q", c.cfg.BaseURL)
	}
}
