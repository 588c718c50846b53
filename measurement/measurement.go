// Package measurement implements the platform-aware measurement algebra used to
// cross-check a release's expected code measurement against an enclave's runtime
// measurement.
package measurement

import "strings"

// PlatformTag identifies the TEE platform a measurement was produced for.
type PlatformTag string

const (
	// SNPTDXMultiV1 is a multi-platform code measurement covering both SEV-SNP
	// and TDX runtimes. It is always treated as the reference side of a
	// comparison (see Equal).
	SNPTDXMultiV1 PlatformTag = "SNP_TDX_MULTI_V1"
	// TDXGuestV1 orders registers as [MRTD, RTMR0, RTMR1, RTMR2].
	TDXGuestV1 PlatformTag = "TDX_GUEST_V1"
	// TDXGuestV2 is like TDXGuestV1 but only positions 2 and 3 ([RTMR1, RTMR2])
	// are meaningful for cross-checking.
	TDXGuestV2 PlatformTag = "TDX_GUEST_V2"
	// SEVSNPGuestV1 carries the SNP measurement at position 0.
	SEVSNPGuestV1 PlatformTag = "SEV_SNP_GUEST_V1"
)

// Unsupported constructs the open "unsupported platform" variant, preserving the
// raw tag string as reported by an attestation so it can be surfaced in errors.
func Unsupported(raw string) PlatformTag {
	return PlatformTag(raw)
}

// Known reports whether p is one of the four enumerated platform tags, as
// opposed to the open "unsupported" variant carrying a raw vendor string.
func (p PlatformTag) Known() bool {
	switch p {
	case SNPTDXMultiV1, TDXGuestV1, TDXGuestV2, SEVSNPGuestV1:
		return true
	default:
		return false
	}
}

// Measurement is a typed, ordered sequence of hex register values for a platform.
// Register semantics depend on Platform; see package doc and spec §3.
type Measurement struct {
	Platform  PlatformTag
	Registers []string
}

func (m Measurement) register(i int) (string, bool) {
	if i < 0 || i >= len(m.Registers) {
		return "", false
	}
	return m.Registers[i], true
}

func canonHex(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func registersEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if canonHex(a[i]) != canonHex(b[i]) {
			return false
		}
	}
	return true
}

func registerEqualAt(a []string, i int, b []string, j int) (bool, bool) {
	av, aok := Measurement{Registers: a}.register(i)
	bv, bok := Measurement{Registers: b}.register(j)
	if !aok || !bok {
		return false, false
	}
	return canonHex(av) == canonHex(bv), true
}

// MismatchError reports why two measurements were found unequal, carrying the
// exact reason strings spec.md §4.1 and §8 require for UI/test matching.
type MismatchError struct {
	Reason string
}

func (e *MismatchError) Error() string { return e.Reason }

func mismatch(reason string) *MismatchError {
	return &MismatchError{Reason: reason}
}

// Equal implements the platform-aware equality relation of spec.md §4.1. It
// returns nil when code and runtime are considered equal, or a *MismatchError
// describing the first failing rule otherwise.
func Equal(code, runtime Measurement) error {
	// Step 1: both multi-platform.
	if code.Platform == SNPTDXMultiV1 && runtime.Platform == SNPTDXMultiV1 {
		if !registersEqual(code.Registers, runtime.Registers) {
			return mismatch("multi-platform measurement mismatch")
		}
		return nil
	}

	// Step 2: flip rule — multi-platform is always the reference (left) side.
	if runtime.Platform == SNPTDXMultiV1 && code.Platform != SNPTDXMultiV1 {
		return Equal(runtime, code)
	}

	// Step 3: multi-platform code vs. a concrete runtime platform.
	if code.Platform == SNPTDXMultiV1 {
		switch runtime.Platform {
		case TDXGuestV1, TDXGuestV2:
			if len(code.Registers) < 3 || len(runtime.Registers) < 4 {
				return mismatch("fewer registers than expected")
			}
			rtmr1Eq, _ := registerEqualAt(code.Registers, 1, runtime.Registers, 2)
			if !rtmr1Eq {
				return mismatch("RTMR1 mismatch")
			}
			rtmr2Eq, _ := registerEqualAt(code.Registers, 2, runtime.Registers, 3)
			if !rtmr2Eq {
				return mismatch("RTMR2 mismatch")
			}
			return nil
		case SEVSNPGuestV1:
			if len(code.Registers) < 1 || len(runtime.Registers) < 1 {
				return mismatch("fewer registers than expected")
			}
			eq, _ := registerEqualAt(code.Registers, 0, runtime.Registers, 0)
			if !eq {
				return mismatch("multi-platform SEV-SNP measurement mismatch")
			}
			return nil
		default:
			return mismatch("unsupported enclave platform for multi-platform code measurements: " + string(runtime.Platform))
		}
	}

	// Step 4: same platform on both sides (multi-vs-multi already handled above).
	if code.Platform == runtime.Platform {
		if !registersEqual(code.Registers, runtime.Registers) {
			return mismatch("measurement mismatch")
		}
		return nil
	}

	// Step 5: anything else is a format mismatch.
	return mismatch("attestation format mismatch")
}
