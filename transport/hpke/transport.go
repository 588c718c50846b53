package hpke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
	"github.com/tinfoilsh/confidential-client-go/internal/httpkit"
	"github.com/tinfoilsh/confidential-client-go/internal/logging"
	"github.com/tinfoilsh/confidential-client-go/internal/metrics"
	"github.com/tinfoilsh/confidential-client-go/internal/resilience"
)

const (
	headerEncapsulatedKey = "Ehbp-Encapsulated-Key"
	headerClientPublicKey = "Ehbp-Client-Public-Key"
	headerFallback        = "Ehbp-Fallback"
)

// Config configures a Transport.
type Config struct {
	BaseURL         string
	EnclaveURL      string
	ExpectedHPKEKey string // hex, optional; empty means discovery-only (spec C7)
	HTTPClient      *http.Client
	Retry           resilience.RetryConfig
	Breaker         *resilience.CircuitBreaker
	Metrics         *metrics.Metrics
	Logger          *logging.Logger
	ClientName      string
}

// Transport is the HPKE-encrypted transport described by spec §4.4.
type Transport struct {
	baseURL         *url.URL
	requestOrigin   *url.URL
	keyOrigin       *url.URL
	expectedHPKEKey string

	httpClientRef *http.Client
	retry         resilience.RetryConfig
	breaker       *resilience.CircuitBreaker
	metrics       *metrics.Metrics
	logger        *logging.Logger
	clientName    string

	cell *cell
}

// New validates cfg and constructs a Transport. The transport handle itself
// is built lazily on first request, per spec §4.4 step 2.
func New(cfg Config) (*Transport, error) {
	_, baseParsed, err := httpkit.NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, enclaveerrors.Configurationf("hpke transport baseURL: %v", err)
	}

	requestOrigin := &url.URL{Scheme: baseParsed.Scheme, Host: baseParsed.Host}

	var keyOrigin *url.URL
	if cfg.EnclaveURL != "" {
		_, enclaveParsed, err := httpkit.NormalizeBaseURL(cfg.EnclaveURL)
		if err != nil {
			return nil, enclaveerrors.Configurationf("hpke transport enclaveURL: %v", err)
		}
		keyOrigin = &url.URL{Scheme: enclaveParsed.Scheme, Host: enclaveParsed.Host}
	}
	keyOrigin = keyOriginOf(requestOrigin, keyOrigin)

	t := &Transport{
		baseURL:         baseParsed,
		requestOrigin:   requestOrigin,
		keyOrigin:       keyOrigin,
		expectedHPKEKey: strings.ToLower(strings.TrimSpace(cfg.ExpectedHPKEKey)),
		httpClientRef:   cfg.HTTPClient,
		retry:           cfg.Retry,
		breaker:         cfg.Breaker,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		clientName:      cfg.ClientName,
	}
	if t.httpClientRef == nil {
		t.httpClientRef = &http.Client{Timeout: 30 * time.Second, Transport: httpkit.DefaultTransportWithMinTLS12()}
	}
	if t.retry == (resilience.RetryConfig{}) {
		t.retry = resilience.DefaultRetryConfig()
	}
	if t.breaker == nil {
		t.breaker = resilience.New(resilience.DefaultConfig())
	}
	if t.logger == nil {
		t.logger = logging.Discard("hpke-transport")
	}
	if t.clientName == "" {
		t.clientName = "tinfoil"
	}

	t.cell = newCell(t.buildHandle)
	return t, nil
}

func (t *Transport) httpClient() *http.Client { return t.httpClientRef }

func (t *Transport) buildHandle(ctx context.Context) (*handle, error) {
	serverPub, err := t.discoverServerKey(ctx)
	if err != nil {
		return nil, err
	}
	return &handle{
		serverPublicKey:    serverPub,
		serverPublicKeyHex: hexEncode(serverPub.Bytes()),
	}, nil
}

// Do issues one encrypted request described by input, enforcing the key pin
// if one was configured. It implements the fetch-shaped contract of spec
// §4.4/§6.
func (t *Transport) Do(ctx context.Context, input RequestInput) (*http.Response, error) {
	if signal := input.signal(); signal != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-signal:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	h, err := t.cell.get(ctx)
	if err != nil {
		return nil, enclaveerrors.Wrap(enclaveerrors.Other, "hpke transport construction", err)
	}

	if t.expectedHPKEKey != "" && t.expectedHPKEKey != strings.ToLower(h.serverPublicKeyHex) {
		t.cell.invalidate()
		if t.metrics != nil {
			t.metrics.RecordKeyMismatch(t.clientName, "hpke")
		}
		return nil, enclaveerrors.KeyMismatchf("HPKE public key mismatch")
	}

	target, err := httpkit.ResolveURL(t.baseURL, input.ref)
	if err != nil {
		return nil, enclaveerrors.Wrap(enclaveerrors.Other, "hpke transport", err)
	}

	var bodyBytes []byte
	if r := input.body(); r != nil {
		bodyBytes, err = io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
	}

	var resp *http.Response
	err = resilience.Retry(ctx, t.retry, func() error {
		sealed, err := seal(h.serverPublicKey, bodyBytes)
		if err != nil {
			return resilience.NonRetryable(fmt.Errorf("sealing request: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, input.method(), target.String(), bytes.NewReader(sealed.sealedBody))
		if err != nil {
			return resilience.NonRetryable(fmt.Errorf("constructing request: %w", err))
		}
		httpkit.MergeHeader(req.Header, input.header())
		stripEhbpHeaders(req.Header)
		req.Header.Set(headerEncapsulatedKey, hexEncode(sealed.clientPublicKey))
		req.Header.Set(headerClientPublicKey, hexEncode(sealed.clientPublicKey))
		if t.expectedHPKEKey == "" {
			req.Header.Set(headerFallback, "1")
		} else {
			req.Header.Set(headerFallback, "0")
		}

		breakerErr := t.breaker.Execute(ctx, func() error {
			r, doErr := t.httpClient().Do(req)
			if doErr != nil {
				return doErr
			}
			resp = r
			return nil
		})
		if errors.Is(breakerErr, resilience.ErrCircuitOpen) || errors.Is(breakerErr, resilience.ErrTooManyRequests) {
			return resilience.NonRetryable(breakerErr)
		}
		return breakerErr
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	if t.metrics != nil {
		t.metrics.RecordTransportRequest(t.clientName, "hpke", status)
	}
	if err != nil {
		return nil, enclaveerrors.Wrap(enclaveerrors.Other, "hpke transport request", err)
	}
	return resp, nil
}

// stripEhbpHeaders removes any Ehbp-* header a caller attempted to set, per
// spec §6: "These are set by the transport and must not be overwritten by
// callers."
func stripEhbpHeaders(h http.Header) {
	h.Del(headerEncapsulatedKey)
	h.Del(headerClientPublicKey)
	h.Del(headerFallback)
}
