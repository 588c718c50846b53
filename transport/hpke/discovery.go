package hpke

import (
	"context"
	"crypto/ecdh"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
	"github.com/tinfoilsh/confidential-client-go/internal/httpkit"
)

const ohttpKeysContentType = "application/ohttp-keys"

// discoverServerKey fetches and parses the server's HPKE public configuration
// from <keyOrigin>/.well-known/hpke-keys, per spec §4.4 step 2 and §6's "HPKE
// key endpoint" contract.
func (t *Transport) discoverServerKey(ctx context.Context) (*ecdh.PublicKey, error) {
	keyURL, err := httpkit.ResolveURL(t.keyOrigin, "/.well-known/hpke-keys")
	if err != nil {
		return nil, enclaveerrors.Wrap(enclaveerrors.Other, "hpke key discovery URL", err)
	}
	if keyURL.Scheme != "https" && !isLocalhostTestHost(keyURL.Hostname()) {
		return nil, enclaveerrors.TransportPolicyf("HPKE key discovery requires HTTPS, got %s", keyURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, keyURL.String(), nil)
	if err != nil {
		return nil, enclaveerrors.Wrap(enclaveerrors.Other, "hpke key discovery request", err)
	}

	resp, err := t.httpClient().Do(req)
	if err != nil {
		return nil, enclaveerrors.Wrap(enclaveerrors.Other, "hpke key discovery", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, enclaveerrors.New(enclaveerrors.Other, fmt.Sprintf("hpke key discovery: unexpected status %d", resp.StatusCode))
	}
	if ct := resp.Header.Get("Content-Type"); ct != ohttpKeysContentType {
		return nil, enclaveerrors.New(enclaveerrors.Other, fmt.Sprintf("hpke key discovery: expected Content-Type %s, got %q", ohttpKeysContentType, ct))
	}

	body, err := httpkit.ReadAllStrict(resp.Body, maxHPKEKeyBytes)
	if err != nil {
		return nil, enclaveerrors.Wrap(enclaveerrors.Other, "hpke key discovery body", err)
	}

	pub, err := parseServerPublicKey(body)
	if err != nil {
		return nil, enclaveerrors.Wrap(enclaveerrors.Other, "hpke key discovery: parsing server public key", err)
	}
	return pub, nil
}

const maxHPKEKeyBytes = 4096

// parseServerPublicKey interprets the discovery body as a raw 32-byte X25519
// public key, the simplest encoding a server publishing an "ohttp-keys"
// config could use.
func parseServerPublicKey(body []byte) (*ecdh.PublicKey, error) {
	return ecdh.X25519().NewPublicKey(body)
}

// keyOriginOf returns the origin (scheme://host[:port]) that key discovery
// should target: enclaveURL's origin if supplied, otherwise requestOrigin's,
// per spec §4.4 step 1.
func keyOriginOf(requestOrigin *url.URL, enclaveURL *url.URL) *url.URL {
	if enclaveURL != nil {
		return enclaveURL
	}
	return requestOrigin
}

// isLocalhostTestHost reports whether host is one of the loopback names spec
// §4.4's "Security requirements" carve out for explicit localhost testing
// ("HTTP to arbitrary hosts is permitted only for explicit localhost
// testing; production HPKE discovery requires HTTPS").
func isLocalhostTestHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
