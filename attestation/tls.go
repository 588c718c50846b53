package attestation

import (
	"encoding/hex"
	"fmt"

	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
)

// validateTLS confirms the TLS public key fingerprint reported by the
// attestation is well-formed: a SHA-256 fingerprint is 32 bytes of hex.
func (e *httpEngine) validateTLS(tlsFingerprint string) error {
	decoded, err := hex.DecodeString(tlsFingerprint)
	if err != nil {
		return enclaveerrors.Wrap(enclaveerrors.ValidateTLS, "", fmt.Errorf("fingerprint is not valid hex: %w", err))
	}
	if len(decoded) != 32 {
		return enclaveerrors.Wrap(enclaveerrors.ValidateTLS, "", fmt.Errorf("fingerprint has unexpected length %d, want 32 bytes", len(decoded)))
	}
	return nil
}
