// Package verifier implements the verifier façade (spec C3): it owns the
// attestation engine's lifecycle, populates a step document from the
// engine's result, and stores an immutable VerificationDocument on both
// success and failure.
package verifier

import (
	"context"
	"net/url"
	"sync"

	"github.com/tinfoilsh/confidential-client-go/attestation"
	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
	"github.com/tinfoilsh/confidential-client-go/stepdoc"
)

// Config configures a Verifier.
type Config struct {
	ServerURL  string
	ConfigRepo string
}

// AttestationResponse is the summary verify() returns to callers (spec
// §4.3): at least one of TLSPublicKeyFingerprint/HPKEPublicKey is present on
// success.
type AttestationResponse struct {
	TLSPublicKeyFingerprint string
	HPKEPublicKey           string
	Measurement             string
}

// VerificationDocument is the immutable record of one verification attempt.
type VerificationDocument struct {
	GroundTruth      *attestation.GroundTruth
	Steps            stepdoc.Document
	ConfigRepo       string
	EnclaveHost      string
	SecurityVerified bool
}

// Verifier is the façade described by spec §4.3.
type Verifier struct {
	factory    attestation.EngineFactory
	serverURL   string
	configRepo  string
	enclaveHost string

	mu       sync.Mutex
	document *VerificationDocument
}

// New creates a Verifier. serverURL must parse; the engine's enclaveHost is
// its hostname.
func New(factory attestation.EngineFactory, cfg Config) (*Verifier, error) {
	if cfg.ServerURL == "" {
		return nil, enclaveerrors.Configurationf("serverURL is required")
	}
	parsed, err := url.Parse(cfg.ServerURL)
	if err != nil || parsed.Hostname() == "" {
		return nil, enclaveerrors.Configurationf("serverURL must be a valid URL")
	}

	return &Verifier{
		factory:     factory,
		serverURL:   cfg.ServerURL,
		configRepo:  cfg.ConfigRepo,
		enclaveHost: parsed.Hostname(),
	}, nil
}

// Verify calls the engine, populates a step document from the outcome, and
// stores a VerificationDocument whether it succeeds or fails. It is not
// memoized: each call constructs a fresh engine and re-issues network calls,
// per spec §4.3's "does not require memoization" note.
func (v *Verifier) Verify(ctx context.Context) (*AttestationResponse, error) {
	engine := v.factory.New()
	gt, verifyErr := engine.Verify(ctx, v.enclaveHost, v.configRepo)

	doc := buildStepDocument(gt, verifyErr)

	v.mu.Lock()
	v.document = &VerificationDocument{
		GroundTruth:      gt,
		Steps:            doc,
		ConfigRepo:       v.configRepo,
		EnclaveHost:      v.enclaveHost,
		SecurityVerified: verifyErr == nil,
	}
	v.mu.Unlock()

	if verifyErr != nil {
		return nil, verifyErr
	}

	return &AttestationResponse{
		TLSPublicKeyFingerprint: gt.TLSPublicKeyFingerprint,
		HPKEPublicKey:           gt.HPKEPublicKey,
		Measurement:             gt.EnclaveFingerprint,
	}, nil
}

// GetVerificationDocument returns the last document, or (nil, false) if
// Verify was never called.
func (v *Verifier) GetVerificationDocument() (*VerificationDocument, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.document == nil {
		return nil, false
	}
	doc := *v.document
	doc.Steps = v.document.Steps.Clone()
	return &doc, true
}

// buildStepDocument infers the per-step status from the engine's
// success/failure and, on failure, the step prefix embedded in the error —
// the engine's single verify() call performs these steps internally, so the
// verifier cannot observe them individually (spec §4.2's sealed contract).
func buildStepDocument(gt *attestation.GroundTruth, verifyErr error) stepdoc.Document {
	doc := stepdoc.New()

	if verifyErr == nil {
		for step := range doc {
			doc.MarkSuccess(step)
		}
		if gt == nil || gt.HardwareMeasurement == nil {
			delete(doc, enclaveerrors.VerifyHardware)
		}
		return doc
	}

	failedStep, ok := enclaveerrors.StepOf(verifyErr)
	if !ok {
		failedStep = enclaveerrors.Other
		doc[enclaveerrors.Other] = stepdoc.Step{}
	}

	order := []enclaveerrors.Step{
		enclaveerrors.FetchDigest,
		enclaveerrors.VerifyCode,
		enclaveerrors.VerifyEnclave,
		enclaveerrors.VerifyHardware,
		enclaveerrors.ValidateTLS,
		enclaveerrors.Measurements,
	}

	reachedFailure := false
	for _, step := range order {
		switch {
		case step == failedStep:
			doc.MarkFailed(step, verifyErr)
			reachedFailure = true
		case !reachedFailure:
			doc.MarkSuccess(step)
		}
	}
	if !reachedFailure {
		doc.MarkFailed(enclaveerrors.Other, verifyErr)
	}

	return doc
}
