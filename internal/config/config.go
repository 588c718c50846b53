// Package config loads the client's configuration (spec §6) from environment
// variables via struct tags, the same envdecode-over-a-tagged-struct idiom the
// corpus's pkg/config uses — minus the .env-file loading step, which spec.md
// places out of scope for the core.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/joeshaw/envdecode"
)

// DefaultProxyHost is the default GitHub release proxy / enclave host used when
// neither BaseURL nor EnclaveURL is configured.
const DefaultProxyHost = "inference.tinfoil.sh"

// DefaultConfigRepo is the vendor-defined default release source.
const DefaultConfigRepo = "tinfoilsh/confidential-inference-proxy"

// Config holds the externally configurable values spec §6 enumerates.
type Config struct {
	BaseURL    string `env:"TINFOIL_BASE_URL"`
	EnclaveURL string `env:"TINFOIL_ENCLAVE_URL"`
	ConfigRepo string `env:"TINFOIL_CONFIG_REPO"`
	APIKey     string `env:"TINFOIL_API_KEY"`
	LogLevel   string `env:"LOG_LEVEL"`
	LogFormat  string `env:"LOG_FORMAT"`
}

// Defaults returns a Config populated with the documented defaults (spec §6).
func Defaults() Config {
	return Config{
		BaseURL:    fmt.Sprintf("https://%s/v1/", DefaultProxyHost),
		EnclaveURL: "",
		ConfigRepo: DefaultConfigRepo,
		LogLevel:   "info",
		LogFormat:  "json",
	}
}

// Load reads Config from the process environment, applying defaults for any
// field left unset. It never reads a .env file — callers who want that load one
// themselves before calling Load, keeping the concern out of this library.
func Load() (Config, error) {
	cfg := Defaults()
	if err := envdecode.Decode(&cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return Config{}, fmt.Errorf("decode env: %w", err)
		}
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.EnclaveURL = strings.TrimSpace(c.EnclaveURL)
	c.ConfigRepo = strings.TrimSpace(c.ConfigRepo)
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
}

// Validate checks that the configured URLs parse and that a config repo is a
// plausible "owner/name" pair, matching spec §4.3's "serverURL must parse"
// requirement.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("baseURL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("baseURL must be a valid URL: %w", err)
	}
	if c.EnclaveURL != "" {
		if _, err := url.Parse(c.EnclaveURL); err != nil {
			return fmt.Errorf("enclaveURL must be a valid URL: %w", err)
		}
	}
	if c.ConfigRepo != "" && strings.Count(c.ConfigRepo, "/") != 1 {
		return fmt.Errorf("configRepo must be of the form owner/name")
	}
	return nil
}
