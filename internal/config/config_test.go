package config

import (
	"os"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	os.Unsetenv("TINFOIL_BASE_URL")
	os.Unsetenv("TINFOIL_ENCLAVE_URL")
	os.Unsetenv("TINFOIL_CONFIG_REPO")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ConfigRepo != DefaultConfigRepo {
		t.Errorf("expected default config repo, got %q", cfg.ConfigRepo)
	}
	if cfg.BaseURL == "" {
		t.Errorf("expected a default base URL")
	}
}

func TestLoadHonorsEnvOverride(t *testing.T) {
	os.Setenv("TINFOIL_CONFIG_REPO", "acme/widgets")
	defer os.Unsetenv("TINFOIL_CONFIG_REPO")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ConfigRepo != "acme/widgets" {
		t.Errorf("expected env override, got %q", cfg.ConfigRepo)
	}
}

func TestValidateRejectsBadConfigRepo(t *testing.T) {
	cfg := Defaults()
	cfg.ConfigRepo = "not-a-repo-pair"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateRequiresBaseURL(t *testing.T) {
	cfg := Defaults()
	cfg.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for missing base URL")
	}
}
