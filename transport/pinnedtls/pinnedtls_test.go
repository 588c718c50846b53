package pinnedtls

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
)

func leafFingerprint(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	cert := srv.Certificate()
	sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return hex.EncodeToString(sum[:])
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDoSucceedsWithMatchingFingerprint(t *testing.T) {
	srv := newEchoServer(t)
	fp := leafFingerprint(t, srv)

	tr, err := New(Config{BaseURL: srv.URL + "/", ExpectedFingerprint: fp, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	resp, err := tr.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("got %q", body)
	}
}

func TestDoFailsOnFingerprintMismatch(t *testing.T) {
	srv := newEchoServer(t)

	tr, err := New(Config{BaseURL: srv.URL + "/", ExpectedFingerprint: strings.Repeat("ab", 32), HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	_, err = tr.Do(req)
	if err == nil {
		t.Fatalf("expected a fingerprint mismatch error")
	}
	if !strings.Contains(err.Error(), "handshake failure") && !strings.Contains(err.Error(), "mismatch") {
		t.Logf("got error: %v", err)
	}
}

func TestNewRejectsPlaintextBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "http://example.com/", ExpectedFingerprint: strings.Repeat("ab", 32)})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != "HTTP connections are not allowed" {
		t.Errorf("got %q", err.Error())
	}
}

func TestDoRejectsPlaintextRequest(t *testing.T) {
	srv := newEchoServer(t)
	fp := leafFingerprint(t, srv)
	tr, err := New(Config{BaseURL: srv.URL + "/", ExpectedFingerprint: fp, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "http://plaintext.example.com/", nil)
	_, err = tr.Do(req)
	if err == nil || err.Error() != "HTTP connections are not allowed" {
		t.Fatalf("expected transport-policy error, got %v", err)
	}
}

func TestNewRejectsBadFingerprintFormat(t *testing.T) {
	_, err := New(Config{BaseURL: "https://example.com/", ExpectedFingerprint: "not-hex"})
	if err == nil {
		t.Fatalf("expected error")
	}
	step, ok := enclaveerrors.StepOf(err)
	if !ok || step != enclaveerrors.Configuration {
		t.Errorf("expected Configuration step, got %v/%v", step, ok)
	}
}
