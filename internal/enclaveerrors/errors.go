// Package enclaveerrors implements the attestation error taxonomy of spec §4.8/§7:
// a small set of step kinds, each rendering to a legacy string-prefixed message so
// existing UI code that parses on prefix keeps working.
package enclaveerrors

import "fmt"

// Step names one stage of the attestation pipeline, or a cross-cutting failure
// kind that is not tied to a single pipeline stage.
type Step string

const (
	FetchDigest      Step = "fetchDigest"
	VerifyCode       Step = "verifyCode"
	VerifyEnclave    Step = "verifyEnclave"
	VerifyHardware   Step = "verifyHardware"
	ValidateTLS      Step = "validateTLS"
	Measurements     Step = "measurements"
	KeyMismatch      Step = "keyMismatch"
	TransportPolicy  Step = "transportPolicy"
	Configuration    Step = "configuration"
	Other            Step = "otherError"
)

// prefix returns the legacy string prefix spec §4.8 requires for each step.
// KeyMismatch, TransportPolicy and Configuration have no pipeline-step prefix of
// their own in spec §4.8's enumerated list; they render their message directly,
// matching the literal error strings spec §7/§8 name (e.g. "HPKE public key
// mismatch").
func (s Step) prefix() (string, bool) {
	switch s {
	case FetchDigest, VerifyCode, VerifyEnclave, VerifyHardware, ValidateTLS, Measurements, Other:
		return string(s) + ":", true
	default:
		return "", false
	}
}

// AttestationError is the single error type produced by the attestation pipeline.
// Its Error() string begins with one of the prefixes spec §4.8 enumerates, or (for
// key-pin/transport-policy/configuration errors) the bare legacy message.
type AttestationError struct {
	StepKind Step
	Message  string
	Err      error
}

func (e *AttestationError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if prefix, ok := e.StepKind.prefix(); ok {
		return prefix + " " + msg
	}
	return msg
}

func (e *AttestationError) Unwrap() error { return e.Err }

// New creates an AttestationError carrying a plain message.
func New(step Step, message string) *AttestationError {
	return &AttestationError{StepKind: step, Message: message}
}

// Wrap creates an AttestationError that preserves an underlying error's message.
func Wrap(step Step, message string, err error) *AttestationError {
	return &AttestationError{StepKind: step, Message: message, Err: err}
}

// KeyMismatchf builds a key-pin-mismatch error with the exact wording spec §4.4/§8
// expect ("HPKE public key mismatch" / "Certificate fingerprint mismatch").
func KeyMismatchf(format string, args ...interface{}) *AttestationError {
	return &AttestationError{StepKind: KeyMismatch, Message: fmt.Sprintf(format, args...)}
}

// TransportPolicyf builds a transport-policy error (plaintext HTTP on a pinned
// path, or a browser runtime with no HPKE key available).
func TransportPolicyf(format string, args ...interface{}) *AttestationError {
	return &AttestationError{StepKind: TransportPolicy, Message: fmt.Sprintf(format, args...)}
}

// Configurationf builds a configuration error (missing required field, bad URL
// scheme).
func Configurationf(format string, args ...interface{}) *AttestationError {
	return &AttestationError{StepKind: Configuration, Message: fmt.Sprintf(format, args...)}
}

// StepOf returns the Step of err if it is (or wraps) an *AttestationError, and
// false otherwise. Callers use this to route UI presentation by step.
func StepOf(err error) (Step, bool) {
	var ae *AttestationError
	for err != nil {
		if e, ok := err.(*AttestationError); ok {
			ae = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if ae == nil {
		return "", false
	}
	return ae.StepKind, true
}
