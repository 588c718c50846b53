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
)

// hardwarePayload mirrors the TDX TCB info shape (ID, MRTD, RTMR0) reported
// by the enclave's hardware quote endpoint.
type hardwarePayload struct {
	ID    string `json:"id"`
	MRTD  string `json:"mrtd"`
	RTMR0 string `json:"rtmr0"`
}

// verifyHardware fetches and validates platform hardware measurements for a
// TDX enclave.
func (e *httpEngine) verifyHardware(ctx context.Context, enclaveHost string) (*HardwareMeasurement, error) {
	url := fmt.Sprintf("https://%s/.well-known/tdx-quote", enclaveHost)

	var payload hardwarePayload
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
			return fmt.Errorf("hardware quote endpoint returned %s", resp.Status)
		}

		body, err := httpkit.ReadAllStrict(resp.Body, maxReleaseBodyBytes)
		if err != nil {
			return resilience.NonRetryable(err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return resilience.NonRetryable(fmt.Errorf("decode hardware quote: %w", err))
		}
		if payload.MRTD == "" || payload.RTMR0 == "" {
			return resilience.NonRetryable(fmt.Errorf("hardware quote missing MRTD/RTMR0"))
		}
		return nil
	})

	if e.cfg.Metrics != nil {
		status := "success"
		if err != nil {
			status = "failed"
		}
		e.cfg.Metrics.RecordStep(e.cfg.ClientName, string(enclaveerrors.VerifyHardware), status, time.Since(start))
	}

	if err != nil {
		return nil, enclaveerrors.Wrap(enclaveerrors.VerifyHardware, "", err)
	}

	return &HardwareMeasurement{ID: payload.ID, MRTD: payload.MRTD, RTMR0: payload.RTMR0}, nil
}
