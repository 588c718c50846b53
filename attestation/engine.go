package attestation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
	"github.com/tinfoilsh/confidential-client-go/internal/httpkit"
	"github.com/tinfoilsh/confidential-client-go/internal/logging"
	"github.com/tinfoilsh/confidential-client-go/internal/metrics"
	"github.com/tinfoilsh/confidential-client-go/internal/ratelimit"
	"github.com/tinfoilsh/confidential-client-go/internal/resilience"
	"github.com/tinfoilsh/confidential-client-go/measurement"
)

// Engine is the sealed attestation entry point (spec C2): one call turns
// (enclaveHost, configRepo) into a GroundTruth or a step-prefixed error.
// Implementations must not cache state across calls — a fresh Engine is
// constructed for every verification to prevent key/cert reuse across
// callers.
type Engine interface {
	Verify(ctx context.Context, enclaveHost, configRepo string) (*GroundTruth, error)
}

// EngineFactory produces a fresh Engine per verification. *Factory is the
// production implementation; *Fake-backed factories stand in for it in tests.
type EngineFactory interface {
	New() Engine
}

// EngineConfig configures a Factory-produced Engine.
type EngineConfig struct {
	ProxyHost  string
	HTTPClient *http.Client
	Limiter    *ratelimit.Limiter
	Retry      resilience.RetryConfig
	Metrics    *metrics.Metrics
	Logger     *logging.Logger
	ClientName string
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.ProxyHost == "" {
		c.ProxyHost = "inference.tinfoil.sh"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: httpkit.DefaultTransportWithMinTLS12(),
		}
	}
	if c.Limiter == nil {
		c.Limiter = ratelimit.New(ratelimit.DefaultConfig())
	}
	if c.Retry == (resilience.RetryConfig{}) {
		c.Retry = resilience.DefaultRetryConfig()
	}
	if c.Logger == nil {
		c.Logger = logging.Discard("attestation")
	}
	if c.ClientName == "" {
		c.ClientName = "tinfoil"
	}
	return c
}

// Factory produces a fresh Engine for each verification, per spec §4.2's "no
// caching across instances" requirement.
type Factory struct {
	cfg EngineConfig
}

// NewFactory creates a Factory that builds engines from cfg.
func NewFactory(cfg EngineConfig) *Factory {
	return &Factory{cfg: cfg.withDefaults()}
}

// New returns a fresh Engine.
func (f *Factory) New() Engine {
	return &httpEngine{cfg: f.cfg}
}

type httpEngine struct {
	cfg EngineConfig
}

// Verify implements Engine. It runs the ordered steps of spec §4.2,
// returning an *enclaveerrors.AttestationError tagged with the first failing
// step's prefix.
func (e *httpEngine) Verify(ctx context.Context, enclaveHost, configRepo string) (*GroundTruth, error) {
	log := e.cfg.Logger.WithStep("verify")
	log.WithField("enclaveHost", enclaveHost).WithField("configRepo", configRepo).Debug("starting attestation")

	digest, err := e.fetchDigest(ctx, configRepo)
	if err != nil {
		return nil, err
	}

	codeMeasurement, codeFingerprint, err := e.verifyCode(ctx, configRepo, digest)
	if err != nil {
		return nil, err
	}

	enclaveResult, err := e.verifyEnclave(ctx, enclaveHost)
	if err != nil {
		return nil, err
	}

	var hardware *HardwareMeasurement
	if isTDXPlatform(enclaveResult.measurement.Platform) {
		hardware, err = e.verifyHardware(ctx, enclaveHost)
		if err != nil {
			return nil, err
		}
	}

	if err := e.validateTLS(enclaveResult.tlsFingerprint); err != nil {
		return nil, err
	}

	if err := measurement.Equal(codeMeasurement, enclaveResult.measurement); err != nil {
		return nil, enclaveerrors.Wrap(enclaveerrors.Measurements, "", err)
	}

	gt := &GroundTruth{
		ReleaseDigest:           digest,
		CodeMeasurement:         codeMeasurement,
		EnclaveMeasurement:      enclaveResult.measurement,
		TLSPublicKeyFingerprint: enclaveResult.tlsFingerprint,
		HPKEPublicKey:           enclaveResult.hpkePublicKey,
		HardwareMeasurement:     hardware,
		CodeFingerprint:         codeFingerprint,
		EnclaveFingerprint:      fingerprint(enclaveResult.measurement),
		SelectedRouterEndpoint:  enclaveHost,
	}

	if !gt.HasHPKEKey() && !gt.HasTLSFingerprint() {
		return nil, enclaveerrors.Wrap(enclaveerrors.VerifyEnclave, "", fmt.Errorf("no transport key material discovered"))
	}

	log.Info("attestation succeeded")
	return gt, nil
}

// fingerprint derives a short display fingerprint for a measurement, used
// the same way spec §3's codeFingerprint/enclaveFingerprint fields are:
// human-readable identifiers, not security-sensitive values in their own
// right (the registers themselves remain the source of truth).
func fingerprint(m measurement.Measurement) string {
	h := fnv64a(string(m.Platform))
	for _, r := range m.Registers {
		h = fnv64aAppend(h, r)
	}
	return fmt.Sprintf("%016x", h)
}

const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

func fnv64a(s string) uint64 {
	return fnv64aAppend(fnvOffset, s)
}

func fnv64aAppend(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

func isTDXPlatform(p measurement.PlatformTag) bool {
	return p == measurement.TDXGuestV1 || p == measurement.TDXGuestV2
}
