package attestation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
	"github.com/tinfoilsh/confidential-client-go/internal/httpkit"
	"github.com/tinfoilsh/confidential-client-go/internal/resilience"
	"github.com/tinfoilsh/confidential-client-go/measurement"
)

// enclaveAttestationPayload is the live-attestation endpoint's response
// shape. The vendor certificate chain and quote signature validation this
// represents is performed by the enclave's attestation verification service
// itself (the sealed engine's external collaborator per spec §1); this
// engine consumes its typed, already-validated result over TLS.
type enclaveAttestationPayload struct {
	TLSPublicKeyFingerprint string `json:"tls_public_key_fingerprint"`
	HPKEPublicKey           string `json:"hpke_public_key,omitempty"`
	Measurement             struct {
		Platform  string   `json:"platform"`
		Registers []string `json:"registers"`
	} `json:"measurement"`
}

type enclaveResult struct {
	tlsFingerprint string
	hpkePublicKey  string
	measurement    measurement.Measurement
}

// verifyEnclave performs a live attestation against enclaveHost.
func (e *httpEngine) verifyEnclave(ctx context.Context, enclaveHost string) (*enclaveResult, error) {
	url := fmt.Sprintf("https://%s/.well-known/attestation", enclaveHost)

	var payload enclaveAttestationPayload
	start := time.Now()
	err := resilience.Retry(ctx, e.cfg.Retry, func() error {
		if err := e.cfg.Limiter.Wait(ctx); err != nil {
			return resilience.NonRetryable(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return resilience.NonRetryable(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := e.cfg.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("enclave attestation endpoint returned %s", resp.Status)
		}

		body, err := httpkit.ReadAllStrict(resp.Body, maxReleaseBodyBytes)
		if err != nil {
			return resilience.NonRetryable(err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return resilience.NonRetryable(fmt.Errorf("decode attestation: %w", err))
		}
		if payload.TLSPublicKeyFingerprint == "" {
			return resilience.NonRetryable(fmt.Errorf("attestation missing TLS public key fingerprint"))
		}
		if len(payload.Measurement.Registers) == 0 {
			return resilience.NonRetryable(fmt.Errorf("attestation missing measurement registers"))
		}
		return nil
	})

	if e.cfg.Metrics != nil {
		status := "success"
		if err != nil {
			status = "failed"
		}
		e.cfg.Metrics.RecordStep(e.cfg.ClientName, string(enclaveerrors.VerifyEnclave), status, time.Since(start))
	}

	if err != nil {
		return nil, enclaveerrors.Wrap(enclaveerrors.VerifyEnclave, "", err)
	}

	return &enclaveResult{
		tlsFingerprint: payload.TLSPublicKeyFingerprint,
		hpkePublicKey:  payload.HPKEPublicKey,
		measurement: measurement.Measurement{
			Platform:  platformTag(payload.Measurement.Platform),
			Registers: payload.Measurement.Registers,
		},
	}, nil
}
