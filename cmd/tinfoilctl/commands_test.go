package main

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRequestBodyPrefersFileOverInline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "body.json")
	if err := os.WriteFile(path, []byte(`{"hello":"file"}`), 0o600); err != nil {
		t.Fatalf("write body file: %v", err)
	}

	r, err := requestBody(`{"hello":"inline"}`, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(data), "file") {
		t.Fatalf("expected file contents, got %q", data)
	}
}

func TestRequestBodyInline(t *testing.T) {
	r, err := requestBody(`{"hello":"inline"}`, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := io.ReadAll(r)
	if string(data) != `{"hello":"inline"}` {
		t.Fatalf("unexpected body %q", data)
	}
}

func TestRequestBodyEmpty(t *testing.T) {
	r, err := requestBody("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != nil {
		t.Fatalf("expected nil reader for empty input")
	}
}

func TestEngineFactoryDerivesHostFromEnclaveURL(t *testing.T) {
	factory := engineFactory(runConfig{enclaveURL: "https://enclave.example.com"})
	if factory == nil {
		t.Fatalf("expected a non-nil factory")
	}
}

func TestEngineFactoryFallsBackToNilOnUnusableURL(t *testing.T) {
	factory := engineFactory(runConfig{})
	if factory != nil {
		t.Fatalf("expected nil factory when no URL is configured")
	}
}

func TestHandleRequestUnverifiedIssuesRequest(t *testing.T) {
	priv := newTestHPKEServer(t)
	srv := priv.server

	err := handleRequest(context.Background(), runConfig{
		baseURL:    srv.URL + "/v1/",
		enclaveURL: srv.URL,
		unverified: true,
	}, []string{"echo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandleVerifyRejectsUnverifiedFlag(t *testing.T) {
	err := handleVerify(context.Background(), runConfig{unverified: true})
	if err == nil || !strings.Contains(err.Error(), "--unverified") {
		t.Fatalf("expected an --unverified rejection, got %v", err)
	}
}

// newTestHPKEServer stands up a mux serving both the HPKE key-discovery
// endpoint and an /v1/echo endpoint, letting handleRequest's unverified path
// exercise real key discovery + a sealed round trip without a live enclave.
type testHPKEServer struct {
	server *httptest.Server
}

func newTestHPKEServer(t *testing.T) *testHPKEServer {
	t.Helper()
	mux := http.NewServeMux()
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	mux.HandleFunc("/.well-known/hpke-keys", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/ohttp-keys")
		w.Write(priv.PublicKey().Bytes())
	})
	mux.HandleFunc("/v1/echo", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		io.Copy(&buf, r.Body)
		w.Write(buf.Bytes())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testHPKEServer{server: srv}
}
