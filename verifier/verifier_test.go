package verifier

import (
	"context"
	"testing"

	"github.com/tinfoilsh/confidential-client-go/attestation"
	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
	"github.com/tinfoilsh/confidential-client-go/measurement"
	"github.com/tinfoilsh/confidential-client-go/stepdoc"
)

func mustVerifier(t *testing.T, factory attestation.EngineFactory) *Verifier {
	t.Helper()
	v, err := New(factory, Config{ServerURL: "https://enclave.example.com/v1/", ConfigRepo: "org/repo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func TestVerifySuccessPopulatesDocument(t *testing.T) {
	gt := &attestation.GroundTruth{
		TLSPublicKeyFingerprint: "fp",
		HPKEPublicKey:           "hpke",
		CodeMeasurement:         measurement.Measurement{Platform: measurement.SNPTDXMultiV1, Registers: []string{"a", "b", "c"}},
		EnclaveMeasurement:      measurement.Measurement{Platform: measurement.SNPTDXMultiV1, Registers: []string{"a", "b", "c"}},
	}
	v := mustVerifier(t, &attestation.FakeFactory{Engine: &attestation.Fake{GroundTruth: gt}})

	resp, err := v.Verify(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.HPKEPublicKey != "hpke" {
		t.Errorf("got %+v", resp)
	}

	doc, ok := v.GetVerificationDocument()
	if !ok {
		t.Fatalf("expected a document")
	}
	if !doc.SecurityVerified {
		t.Errorf("expected SecurityVerified=true")
	}
	for step, s := range doc.Steps {
		if step == enclaveerrors.VerifyHardware {
			t.Errorf("did not expect verifyHardware step without a hardware measurement")
		}
		if s.Status != "success" {
			t.Errorf("expected step %s to be success, got %s", step, s.Status)
		}
	}
}

func TestVerifyFailureLeavesLaterStepsPending(t *testing.T) {
	failErr := enclaveerrors.Wrap(enclaveerrors.VerifyEnclave, "", context.DeadlineExceeded)
	v := mustVerifier(t, &attestation.FakeFactory{Engine: &attestation.Fake{Err: failErr}})

	_, err := v.Verify(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}

	doc, ok := v.GetVerificationDocument()
	if !ok {
		t.Fatalf("expected a document")
	}
	if doc.SecurityVerified {
		t.Errorf("expected SecurityVerified=false")
	}
	if doc.Steps[enclaveerrors.FetchDigest].Status != "success" {
		t.Errorf("expected fetchDigest success, got %+v", doc.Steps[enclaveerrors.FetchDigest])
	}
	if doc.Steps[enclaveerrors.VerifyCode].Status != "success" {
		t.Errorf("expected verifyCode success, got %+v", doc.Steps[enclaveerrors.VerifyCode])
	}
	if doc.Steps[enclaveerrors.VerifyEnclave].Status != "failed" {
		t.Errorf("expected verifyEnclave failed, got %+v", doc.Steps[enclaveerrors.VerifyEnclave])
	}
	if doc.Steps[enclaveerrors.VerifyHardware].Status != "pending" {
		t.Errorf("expected verifyHardware pending, got %+v", doc.Steps[enclaveerrors.VerifyHardware])
	}
	if doc.Steps[enclaveerrors.Measurements].Status != "pending" {
		t.Errorf("expected measurements pending, got %+v", doc.Steps[enclaveerrors.Measurements])
	}
}

func TestGetVerificationDocumentAbsentBeforeVerify(t *testing.T) {
	v := mustVerifier(t, &attestation.FakeFactory{Engine: &attestation.Fake{}})
	if _, ok := v.GetVerificationDocument(); ok {
		t.Fatalf("expected no document before Verify is called")
	}
}

func TestNewRejectsMissingServerURL(t *testing.T) {
	if _, err := New(&attestation.FakeFactory{}, Config{}); err == nil {
		t.Fatalf("expected error for missing serverURL")
	}
}

func TestGetVerificationDocumentReturnsIndependentCopy(t *testing.T) {
	v := mustVerifier(t, &attestation.FakeFactory{Engine: &attestation.Fake{GroundTruth: &attestation.GroundTruth{TLSPublicKeyFingerprint: "fp"}}})
	if _, err := v.Verify(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc1, _ := v.GetVerificationDocument()
	doc1.Steps[enclaveerrors.FetchDigest] = stepdoc.Step{Status: stepdoc.Failed, Error: "tampered"}

	doc2, _ := v.GetVerificationDocument()
	if doc2.Steps[enclaveerrors.FetchDigest].Status != "success" {
		t.Errorf("mutating a returned document must not affect later reads")
	}
}
