package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/tinfoilsh/confidential-client-go/transport/hpke"
)

// ErrUnverifiedDocument is returned by UnverifiedClient.GetVerificationDocument,
// matching the exact wording spec §4.7 requires.
var ErrUnverifiedDocument = errors.New("Verification document unavailable: this version of the client is unverified")

// UnverifiedClient has the same public shape as SecureClient but performs no
// attestation: it constructs the HPKE transport with no expected-key pin, a
// clearly-labeled opportunistic-privacy path (spec §4.7).
type UnverifiedClient struct {
	cfg Config

	gate readyGate

	mu            sync.Mutex
	hpkeTransport *hpke.Transport
}

// NewUnverified builds an UnverifiedClient.
func NewUnverified(cfg Config) (*UnverifiedClient, error) {
	resolved, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &UnverifiedClient{cfg: resolved}, nil
}

// Ready constructs the discovery-only HPKE transport if it hasn't been built
// yet. No network call happens here — key discovery stays lazy inside the
// transport's single-flight cell per spec §4.4.
func (c *UnverifiedClient) Ready(ctx context.Context) error {
	return c.gate.do(func() error {
		tr, err := hpke.New(hpke.Config{BaseURL: c.cfg.BaseURL, EnclaveURL: c.cfg.EnclaveURL})
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.hpkeTransport = tr
		c.mu.Unlock()
		return nil
	})
}

// Fetch issues one request through the discovery-only HPKE transport.
func (c *UnverifiedClient) Fetch(ctx context.Context, method, ref string, header http.Header, body io.Reader) (*http.Response, error) {
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}

	header = withBearer(header, c.cfg.APIKey)

	c.mu.Lock()
	tr := c.hpkeTransport
	c.mu.Unlock()

	input := hpke.StringInput(ref).Override(&hpke.PreparedInput{Method: method, Header: header, Body: body})
	return tr.Do(ctx, input)
}

// Do issues req, a fully-formed request-like object, through the
// discovery-only HPKE transport. It covers spec §4.4 step 1's
// request-like-object normalization case; Fetch covers the bare string/URL
// case.
func (c *UnverifiedClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}

	req = req.WithContext(ctx)
	req.Header = withBearer(req.Header, c.cfg.APIKey)

	c.mu.Lock()
	tr := c.hpkeTransport
	c.mu.Unlock()

	input, err := hpke.FromRequest(req)
	if err != nil {
		return nil, err
	}
	return tr.Do(ctx, input)
}

// GetVerificationDocument always fails for an unverified client, per spec
// §4.7's exact wording.
func (c *UnverifiedClient) GetVerificationDocument() error {
	return ErrUnverifiedDocument
}
