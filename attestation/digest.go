package attestation

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
	"github.com/tinfoilsh/confidential-client-go/internal/httpkit"
	"github.com/tinfoilsh/confidential-client-go/internal/resilience"
)

const maxReleaseBodyBytes = 1 << 20

// eifHashPattern and digestPattern implement spec §4.2 step 1's two accepted
// literal forms. EIF hash is preferred when both are present.
var (
	eifHashPattern = regexp.MustCompile(`(?i)EIF hash:\s*([0-9a-fA-F]{64})`)
	digestPattern  = regexp.MustCompile("(?i)Digest:\\s*`([0-9a-fA-F]{64})`")
)

// fetchDigest fetches the latest release of configRepo from the GitHub proxy
// and extracts a 64-hex digest from the release body.
func (e *httpEngine) fetchDigest(ctx context.Context, configRepo string) (string, error) {
	url := fmt.Sprintf("https://%s/repos/%s/releases/latest", e.cfg.ProxyHost, configRepo)

	var digest string
	start := time.Now()
	err := resilience.Retry(ctx, e.cfg.Retry, func() error {
		if err := e.cfg.Limiter.Wait(ctx); err != nil {
			return resilience.NonRetryable(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return resilience.NonRetryable(err)
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		req.Header.Set("User-Agent", "tinfoil-confidential-client-go")

		resp, err := e.cfg.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("release index returned %s", resp.Status)
		}

		body, err := httpkit.ReadAllStrict(resp.Body, maxReleaseBodyBytes)
		if err != nil {
			return resilience.NonRetryable(err)
		}

		releaseBody := gjson.GetBytes(body, "body").String()
		if releaseBody == "" {
			return resilience.NonRetryable(fmt.Errorf("release response has no body field"))
		}

		if m := eifHashPattern.FindStringSubmatch(releaseBody); m != nil {
			digest = m[1]
			return nil
		}
		if m := digestPattern.FindStringSubmatch(releaseBody); m != nil {
			digest = m[1]
			return nil
		}
		return resilience.NonRetryable(fmt.Errorf("Could not find digest in release notes"))
	})

	if e.cfg.Metrics != nil {
		status := "success"
		if err != nil {
			status = "failed"
		}
		e.cfg.Metrics.RecordStep(e.cfg.ClientName, string(enclaveerrors.FetchDigest), status, time.Since(start))
	}

	if err != nil {
		return "", enclaveerrors.Wrap(enclaveerrors.FetchDigest, "", err)
	}
	return digest, nil
}
