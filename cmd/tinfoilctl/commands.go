package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/tinfoilsh/confidential-client-go/attestation"
	"github.com/tinfoilsh/confidential-client-go/client"
)

// handleVerify runs one attestation and prints the resulting verification
// document as indented JSON, regardless of whether it succeeded.
func handleVerify(ctx context.Context, cfg runConfig) error {
	if cfg.unverified {
		return errors.New("verify is not available with --unverified")
	}

	c, err := newSecureClient(cfg)
	if err != nil {
		return err
	}

	verifyErr := c.Ready(ctx)

	doc, ok := c.GetVerificationDocument()
	if !ok {
		return fmt.Errorf("no verification document produced: %w", verifyErr)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode verification document: %w", err)
	}
	fmt.Println(string(data))

	if verifyErr != nil {
		return fmt.Errorf("attestation failed: %w", verifyErr)
	}
	return nil
}

// handleRequest issues one request through whichever transport verification
// (or, with --unverified, discovery alone) selected.
func handleRequest(ctx context.Context, cfg runConfig, args []string) error {
	fs := flag.NewFlagSet("request", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	method := fs.String("X", http.MethodGet, "HTTP method")
	bodyStr := fs.String("d", "", "Request body")
	bodyFile := fs.String("d-file", "", "Path to a file containing the request body")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return usageError(errors.New("request requires a path, e.g. tinfoilctl request /v1/chat/completions"))
	}
	path := remaining[0]

	body, err := requestBody(*bodyStr, *bodyFile)
	if err != nil {
		return err
	}

	var resp *http.Response
	if cfg.unverified {
		c, err := newUnverifiedClient(cfg)
		if err != nil {
			return err
		}
		resp, err = c.Fetch(ctx, strings.ToUpper(*method), path, nil, body)
		if err != nil {
			return err
		}
	} else {
		c, err := newSecureClient(cfg)
		if err != nil {
			return err
		}
		resp, err = c.Fetch(ctx, strings.ToUpper(*method), path, nil, body)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	fmt.Println(string(data))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}

func requestBody(inline, path string) (io.Reader, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read body file: %w", err)
		}
		return bytes.NewReader(data), nil
	}
	if inline != "" {
		return strings.NewReader(inline), nil
	}
	return nil, nil
}

// newSecureClient builds an attestation.Factory so the run's --v logger
// carries through to the engine's own step-by-step logging, instead of
// letting SecureClient.New fall back to a discard logger.
func newSecureClient(cfg runConfig) (*client.SecureClient, error) {
	return client.New(client.Config{
		BaseURL:    cfg.baseURL,
		EnclaveURL: cfg.enclaveURL,
		ConfigRepo: cfg.configRepo,
		APIKey:     cfg.apiKey,
	}, engineFactory(cfg))
}

// engineFactory derives the enclave hostname from whichever of --enclave /
// --base the caller supplied and returns nil (letting SecureClient fall back
// to its own default) when neither parses into a usable host.
func engineFactory(cfg runConfig) attestation.EngineFactory {
	raw := cfg.enclaveURL
	if raw == "" {
		raw = cfg.baseURL
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return nil
	}
	return attestation.NewFactory(attestation.EngineConfig{
		ProxyHost: parsed.Hostname(),
		Logger:    cfg.logger,
	})
}

func newUnverifiedClient(cfg runConfig) (*client.UnverifiedClient, error) {
	return client.NewUnverified(client.Config{
		BaseURL:    cfg.baseURL,
		EnclaveURL: cfg.enclaveURL,
		ConfigRepo: cfg.configRepo,
		APIKey:     cfg.apiKey,
	})
}
