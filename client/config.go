// Package client implements the public transport selector (spec C6)
// SecureClient and its unverified counterpart (spec C7) UnverifiedClient.
// Both expose the same fetch-shaped surface; SecureClient gates it behind a
// full attestation run, UnverifiedClient skips attestation entirely.
package client

import (
	"net/url"
	"strings"

	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
)

const (
	defaultProxyHost  = "inference.tinfoil.sh"
	defaultConfigRepo = "tinfoilsh/confidential-inference-proxy"
)

// Config configures a SecureClient or UnverifiedClient (spec §6's
// "Configuration (enumerated)" table).
type Config struct {
	BaseURL    string
	EnclaveURL string
	ConfigRepo string
	APIKey     string
}

// withDefaults fills in every absent field per spec §4.6's "URL derivation"
// and §6's default table.
func (c Config) withDefaults() (Config, error) {
	out := c

	switch {
	case out.BaseURL == "" && out.EnclaveURL != "":
		origin, err := originOf(out.EnclaveURL)
		if err != nil {
			return Config{}, enclaveerrors.Configurationf("enclaveURL: %v", err)
		}
		out.BaseURL = origin + "/v1/"
	case out.EnclaveURL == "" && out.BaseURL != "":
		origin, err := originOf(out.BaseURL)
		if err != nil {
			return Config{}, enclaveerrors.Configurationf("baseURL: %v", err)
		}
		out.EnclaveURL = origin
	case out.BaseURL == "" && out.EnclaveURL == "":
		out.BaseURL = "https://" + defaultProxyHost + "/v1/"
		out.EnclaveURL = "https://" + defaultProxyHost
	}

	if out.ConfigRepo == "" {
		out.ConfigRepo = defaultConfigRepo
	}
	return out, nil
}

func originOf(raw string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", enclaveerrors.Configurationf("must be a valid absolute URL")
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}

// isRealBrowser reports whether the current runtime is a real browser
// environment, per spec §4.6's "Browser detection" rule. A Go process is
// never a browser; this always classifies as not-browser, which is the safer
// default the spec names for the TLS-fallback decision.
func isRealBrowser() bool { return false }
