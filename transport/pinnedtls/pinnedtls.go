// Package pinnedtls implements the pinned-TLS transport (spec C5): a fallback
// used when no HPKE key was attested, valid only outside real browser
// environments. It opens (or reuses) a TLS connection to the configured base
// URL's origin and, during the handshake, compares the leaf certificate's
// SubjectPublicKeyInfo fingerprint against the attested value — grounded on
// the enclave-pinning idiom in the corpus's tee/network VerifyConnection hook,
// generalized from a host->fingerprint map to this client's single expected
// fingerprint.
package pinnedtls

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
	"github.com/tinfoilsh/confidential-client-go/internal/httpkit"
)

// Config configures a Transport.
type Config struct {
	BaseURL             string
	ExpectedFingerprint string // hex SHA-256 of the leaf's DER SPKI
	HTTPClient          *http.Client
}

// Transport is a fetch-shaped pinned-TLS client. No body transformation
// occurs; it is a pinned TLS client only (spec §4.5).
type Transport struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New validates cfg and builds a Transport whose RoundTripper aborts any
// handshake whose leaf SPKI fingerprint disagrees with ExpectedFingerprint.
func New(cfg Config) (*Transport, error) {
	_, parsed, err := httpkit.NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, enclaveerrors.Configurationf("pinned-tls transport baseURL: %v", err)
	}
	if parsed.Scheme != "https" {
		return nil, enclaveerrors.TransportPolicyf("HTTP connections are not allowed")
	}

	expected := strings.ToLower(strings.TrimSpace(cfg.ExpectedFingerprint))
	if expected == "" {
		return nil, enclaveerrors.Configurationf("pinned-tls transport requires an expected fingerprint")
	}
	if _, err := hex.DecodeString(expected); err != nil || len(expected) != sha256.Size*2 {
		return nil, enclaveerrors.Configurationf("pinned-tls transport expected fingerprint must be a 32-byte hex string")
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	client := httpkit.CopyClientWithTimeout(base, pickTimeout(base))
	client.Transport = pinnedTransport(base, expected)

	return &Transport{baseURL: parsed, httpClient: client}, nil
}

func pickTimeout(base *http.Client) time.Duration {
	if base.Timeout != 0 {
		return base.Timeout
	}
	return 30 * time.Second
}

func pinnedTransport(base *http.Client, expectedFingerprint string) *http.Transport {
	inner := httpkit.DefaultTransportWithMinTLS12()
	if rt, ok := base.Transport.(*http.Transport); ok && rt != nil {
		inner = rt.Clone()
	}
	tlsCfg := inner.TLSClientConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	} else {
		tlsCfg = tlsCfg.Clone()
	}
	tlsCfg.VerifyConnection = func(cs tls.ConnectionState) error {
		return verifyPinnedFingerprint(cs.PeerCertificates, expectedFingerprint)
	}
	inner.TLSClientConfig = tlsCfg
	return inner
}

// verifyPinnedFingerprint computes the SHA-256 of the leaf's DER-encoded
// SubjectPublicKeyInfo and compares it to expectedFingerprint, case
// insensitively, per spec §4.5.
func verifyPinnedFingerprint(peerCerts []*x509.Certificate, expectedFingerprint string) error {
	if len(peerCerts) == 0 || peerCerts[0] == nil {
		return enclaveerrors.KeyMismatchf("Certificate fingerprint mismatch")
	}
	sum := sha256.Sum256(peerCerts[0].RawSubjectPublicKeyInfo)
	got := hex.EncodeToString(sum[:])
	if got != expectedFingerprint {
		return enclaveerrors.KeyMismatchf("Certificate fingerprint mismatch")
	}
	return nil
}

// Do issues req against the transport's pinned TLS connection. req's URL is
// resolved against baseURL first, mirroring the HPKE transport's contract;
// plaintext HTTP requests are refused.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "http" {
		return nil, enclaveerrors.TransportPolicyf("HTTP connections are not allowed")
	}
	if req.URL.Scheme != "https" {
		target, err := httpkit.ResolveURL(t.baseURL, req.URL.String())
		if err != nil {
			return nil, fmt.Errorf("resolving request URL: %w", err)
		}
		req.URL = target
	}
	return t.httpClient.Do(req)
}
