// Package attestation implements the sealed attestation engine (spec C2):
// one call that turns (enclaveHost, configRepo) into a ground-truth record,
// performing the digest fetch, code-provenance check, live enclave
// attestation, hardware check, and measurement cross-check in order.
package attestation

import "github.com/tinfoilsh/confidential-client-go/measurement"

// HardwareMeasurement carries the platform hardware registers attached to a
// TDX ground truth (verifyHardware step).
type HardwareMeasurement struct {
	ID    string
	MRTD  string
	RTMR0 string
}

// GroundTruth is the authoritative result of a successful attestation run.
// Once constructed it is never mutated — callers that need a mutable working
// copy should copy the struct value.
type GroundTruth struct {
	ReleaseDigest           string
	CodeMeasurement         measurement.Measurement
	EnclaveMeasurement      measurement.Measurement
	TLSPublicKeyFingerprint string
	HPKEPublicKey           string
	HardwareMeasurement     *HardwareMeasurement
	CodeFingerprint         string
	EnclaveFingerprint      string
	SelectedRouterEndpoint  string
}

// HasHPKEKey reports whether an HPKE public key was discovered.
func (g GroundTruth) HasHPKEKey() bool { return g.HPKEPublicKey != "" }

// HasTLSFingerprint reports whether a TLS leaf fingerprint was discovered.
func (g GroundTruth) HasTLSFingerprint() bool { return g.TLSPublicKeyFingerprint != "" }
