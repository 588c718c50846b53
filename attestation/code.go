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

// codeMeasurementPayload is the transparency-log proxy's response shape for
// a release's expected measurement. The proxy is responsible for the actual
// Sigstore bundle verification; this engine only consumes its typed result,
// matching spec §1's treatment of the attestation cryptography as a sealed
// external collaborator.
type codeMeasurementPayload struct {
	Platform    string   `json:"platform"`
	Registers   []string `json:"registers"`
	Fingerprint string   `json:"fingerprint"`
}

// verifyCode checks transparency-log provenance for the release at digest
// and returns the expected codeMeasurement plus its display fingerprint.
func (e *httpEngine) verifyCode(ctx context.Context, configRepo, digest string) (measurement.Measurement, string, error) {
	url := fmt.Sprintf("https://%s/repos/%s/attestations/%s", e.cfg.ProxyHost, configRepo, digest)

	var payload codeMeasurementPayload
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
			return fmt.Errorf("transparency log proxy returned %s", resp.Status)
		}

		body, err := httpkit.ReadAllStrict(resp.Body, maxReleaseBodyBytes)
		if err != nil {
			return resilience.NonRetryable(err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return resilience.NonRetryable(fmt.Errorf("decode attestation bundle: %w", err))
		}
		if len(payload.Registers) == 0 {
			return resilience.NonRetryable(fmt.Errorf("attestation bundle has no measurement registers"))
		}
		return nil
	})

	if e.cfg.Metrics != nil {
		status := "success"
		if err != nil {
			status = "failed"
		}
		e.cfg.Metrics.RecordStep(e.cfg.ClientName, string(enclaveerrors.VerifyCode), status, time.Since(start))
	}

	if err != nil {
		return measurement.Measurement{}, "", enclaveerrors.Wrap(enclaveerrors.VerifyCode, "", err)
	}

	m := measurement.Measurement{
		Platform:  platformTag(payload.Platform),
		Registers: payload.Registers,
	}
	fp := payload.Fingerprint
	if fp == "" {
		fp = fingerprint(m)
	}
	return m, fp, nil
}

func platformTag(raw string) measurement.PlatformTag {
	tag := measurement.PlatformTag(raw)
	if tag.Known() {
		return tag
	}
	return measurement.Unsupported(raw)
}
