package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"

	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
	"github.com/tinfoilsh/confidential-client-go/internal/httpkit"
)

// ResolveRouterEndpoint fetches a JSON array of candidate enclave hosts from
// routersURL and returns one chosen uniformly at random. This is the optional
// pre-step spec.md's Open Question (a) scopes to UnverifiedClient only: it
// must run (if at all) before any verification, and its result never flows
// into a GroundTruth field — it only picks which host NewUnverified targets.
func ResolveRouterEndpoint(ctx context.Context, httpClient *http.Client, routersURL string) (string, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, routersURL, nil)
	if err != nil {
		return "", enclaveerrors.Configurationf("router endpoint list URL: %v", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching router endpoint list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching router endpoint list: unexpected status %d", resp.StatusCode)
	}

	body, err := httpkit.ReadAllStrict(resp.Body, 1<<16)
	if err != nil {
		return "", fmt.Errorf("reading router endpoint list: %w", err)
	}

	var endpoints []string
	if err := json.Unmarshal(body, &endpoints); err != nil {
		return "", fmt.Errorf("parsing router endpoint list: %w", err)
	}
	if len(endpoints) == 0 {
		return "", fmt.Errorf("router endpoint list is empty")
	}

	return endpoints[rand.IntN(len(endpoints))], nil
}

// NewUnverifiedWithRouterResolution resolves a router endpoint first (see
// ResolveRouterEndpoint) and uses it as both cfg.BaseURL's and cfg.EnclaveURL's
// origin when those are unset, then builds an UnverifiedClient as usual.
func NewUnverifiedWithRouterResolution(ctx context.Context, httpClient *http.Client, routersURL string, cfg Config) (*UnverifiedClient, error) {
	if cfg.BaseURL == "" && cfg.EnclaveURL == "" {
		endpoint, err := ResolveRouterEndpoint(ctx, httpClient, routersURL)
		if err != nil {
			return nil, err
		}
		cfg.EnclaveURL = endpoint
	}
	return NewUnverified(cfg)
}
