package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/tinfoilsh/confidential-client-go/attestation"
	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
	"github.com/tinfoilsh/confidential-client-go/internal/httpkit"
	"github.com/tinfoilsh/confidential-client-go/transport/hpke"
	"github.com/tinfoilsh/confidential-client-go/transport/pinnedtls"
	"github.com/tinfoilsh/confidential-client-go/verifier"
)

// SecureClient is the attested transport selector of spec §4.6: it runs a
// full verification on first use and then routes every request through
// whichever transport the ground truth selects.
type SecureClient struct {
	cfg      Config
	verifier *verifier.Verifier

	gate readyGate

	mu            sync.Mutex
	hpkeTransport *hpke.Transport
	tlsTransport  *pinnedtls.Transport
}

// New builds a SecureClient. If engineFactory is nil, a production
// attestation.Factory talking to the resolved enclaveURL's host is used.
func New(cfg Config, engineFactory attestation.EngineFactory) (*SecureClient, error) {
	resolved, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	if engineFactory == nil {
		host, err := hostOf(resolved.EnclaveURL)
		if err != nil {
			return nil, err
		}
		engineFactory = attestation.NewFactory(attestation.EngineConfig{ProxyHost: host})
	}

	v, err := verifier.New(engineFactory, verifier.Config{ServerURL: resolved.EnclaveURL, ConfigRepo: resolved.ConfigRepo})
	if err != nil {
		return nil, err
	}

	return &SecureClient{cfg: resolved, verifier: v}, nil
}

func hostOf(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return "", enclaveerrors.Configurationf("enclaveURL must be a valid URL")
	}
	return parsed.Host, nil
}

// Ready triggers verification and transport construction if not already
// done. It is idempotent and safe to call concurrently; concurrent first
// calls share a single verification run (spec §4.6/§5).
func (c *SecureClient) Ready(ctx context.Context) error {
	return c.gate.do(func() error { return c.buildTransport(ctx) })
}

func (c *SecureClient) buildTransport(ctx context.Context) error {
	if _, err := c.verifier.Verify(ctx); err != nil {
		return err
	}
	doc, ok := c.verifier.GetVerificationDocument()
	if !ok || doc.GroundTruth == nil {
		return enclaveerrors.New(enclaveerrors.Other, "verification document missing after Verify")
	}
	gt := doc.GroundTruth

	switch {
	case gt.HasHPKEKey():
		tr, err := hpke.New(hpke.Config{BaseURL: c.cfg.BaseURL, EnclaveURL: c.cfg.EnclaveURL, ExpectedHPKEKey: gt.HPKEPublicKey})
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.hpkeTransport, c.tlsTransport = tr, nil
		c.mu.Unlock()
	case !isRealBrowser() && gt.HasTLSFingerprint():
		tr, err := pinnedtls.New(pinnedtls.Config{BaseURL: c.cfg.BaseURL, ExpectedFingerprint: gt.TLSPublicKeyFingerprint})
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.tlsTransport, c.hpkeTransport = tr, nil
		c.mu.Unlock()
	default:
		return enclaveerrors.TransportPolicyf("HPKE public key not available and TLS-only verification is not supported in browsers")
	}
	return nil
}

// Fetch issues one request through the selected transport, calling Ready
// internally if it has not run yet (spec §4.6's "fetch: ... calling it
// before ready() triggers ready() internally").
func (c *SecureClient) Fetch(ctx context.Context, method, ref string, header http.Header, body io.Reader) (*http.Response, error) {
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}

	header = withBearer(header, c.cfg.APIKey)

	c.mu.Lock()
	hpkeTr, tlsTr := c.hpkeTransport, c.tlsTransport
	c.mu.Unlock()

	if hpkeTr != nil {
		input := hpke.StringInput(ref).Override(&hpke.PreparedInput{Method: method, Header: header, Body: body})
		return hpkeTr.Do(ctx, input)
	}

	req, err := http.NewRequestWithContext(ctx, method, ref, body)
	if err != nil {
		return nil, err
	}
	httpkit.MergeHeader(req.Header, header)
	return tlsTr.Do(req)
}

// Do issues req, a fully-formed request-like object, through the selected
// transport, calling Ready internally if it has not run yet. It covers spec
// §4.4 step 1's request-like-object normalization case; Fetch covers the
// bare string/URL case.
func (c *SecureClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}

	req = req.WithContext(ctx)
	req.Header = withBearer(req.Header, c.cfg.APIKey)

	c.mu.Lock()
	hpkeTr, tlsTr := c.hpkeTransport, c.tlsTransport
	c.mu.Unlock()

	if hpkeTr != nil {
		input, err := hpke.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return hpkeTr.Do(ctx, input)
	}
	return tlsTr.Do(req)
}

// GetVerificationDocument returns the last verification document, or
// (nil, false) if Ready/Fetch has never completed a verification.
func (c *SecureClient) GetVerificationDocument() (*verifier.VerificationDocument, bool) {
	return c.verifier.GetVerificationDocument()
}

func withBearer(header http.Header, apiKey string) http.Header {
	if apiKey == "" {
		return header
	}
	out := header.Clone()
	if out == nil {
		out = http.Header{}
	}
	if out.Get("Authorization") == "" {
		out.Set("Authorization", "Bearer "+apiKey)
	}
	return out
}
