package measurement

import "testing"

func TestEqual_MultiVsMulti(t *testing.T) {
	a := Measurement{Platform: SNPTDXMultiV1, Registers: []string{"AA", "bb", "CC"}}
	b := Measurement{Platform: SNPTDXMultiV1, Registers: []string{"aa", "BB", "cc"}}
	if err := Equal(a, b); err != nil {
		t.Fatalf("expected equal, got %v", err)
	}

	c := Measurement{Platform: SNPTDXMultiV1, Registers: []string{"aa", "BB", "dd"}}
	err := Equal(a, c)
	if err == nil || err.Error() != "multi-platform measurement mismatch" {
		t.Fatalf("expected multi-platform mismatch, got %v", err)
	}
}

func TestEqual_FlipRule(t *testing.T) {
	// runtime is multi, code is concrete: swap and re-enter.
	code := Measurement{Platform: SEVSNPGuestV1, Registers: []string{"aa"}}
	runtime := Measurement{Platform: SNPTDXMultiV1, Registers: []string{"aa", "bb", "cc"}}
	if err := Equal(code, runtime); err != nil {
		t.Fatalf("expected equal after flip, got %v", err)
	}
}

func TestEqual_MultiVsTDXGuestV1(t *testing.T) {
	code := Measurement{Platform: SNPTDXMultiV1, Registers: []string{"X", "Y", "Z"}}
	runtime := Measurement{Platform: TDXGuestV1, Registers: []string{"M", "R0", "Y", "Z"}}
	if err := Equal(code, runtime); err != nil {
		t.Fatalf("expected equal, got %v", err)
	}

	badRTMR1 := Measurement{Platform: TDXGuestV1, Registers: []string{"M", "R0", "Yprime", "Z"}}
	err := Equal(code, badRTMR1)
	if err == nil || err.Error() != "RTMR1 mismatch" {
		t.Fatalf("expected RTMR1 mismatch, got %v", err)
	}

	badRTMR2 := Measurement{Platform: TDXGuestV1, Registers: []string{"M", "R0", "Y", "Zprime"}}
	err = Equal(code, badRTMR2)
	if err == nil || err.Error() != "RTMR2 mismatch" {
		t.Fatalf("expected RTMR2 mismatch, got %v", err)
	}
}

func TestEqual_MultiVsTDXGuestV1_TooFewRegisters(t *testing.T) {
	shortCode := Measurement{Platform: SNPTDXMultiV1, Registers: []string{"X", "Y"}}
	runtime := Measurement{Platform: TDXGuestV1, Registers: []string{"M", "R0", "Y", "Z"}}
	err := Equal(shortCode, runtime)
	if err == nil || err.Error() != "fewer registers than expected" {
		t.Fatalf("expected 'fewer registers than expected', got %v", err)
	}

	code := Measurement{Platform: SNPTDXMultiV1, Registers: []string{"X", "Y", "Z"}}
	shortRuntime := Measurement{Platform: TDXGuestV1, Registers: []string{"M", "R0", "Y"}}
	err = Equal(code, shortRuntime)
	if err == nil || err.Error() != "fewer registers than expected" {
		t.Fatalf("expected 'fewer registers than expected', got %v", err)
	}
}

func TestEqual_MultiVsTDXGuestV2(t *testing.T) {
	code := Measurement{Platform: SNPTDXMultiV1, Registers: []string{"X", "Y", "Z"}}
	runtime := Measurement{Platform: TDXGuestV2, Registers: []string{"M", "R0", "Y", "Z"}}
	if err := Equal(code, runtime); err != nil {
		t.Fatalf("expected equal, got %v", err)
	}
}

func TestEqual_MultiVsSEVSNP(t *testing.T) {
	code := Measurement{Platform: SNPTDXMultiV1, Registers: []string{"X", "Y", "Z"}}
	runtime := Measurement{Platform: SEVSNPGuestV1, Registers: []string{"X"}}
	if err := Equal(code, runtime); err != nil {
		t.Fatalf("expected equal (only register 0 compared), got %v", err)
	}

	mismatched := Measurement{Platform: SEVSNPGuestV1, Registers: []string{"Xprime"}}
	err := Equal(code, mismatched)
	if err == nil || err.Error() != "multi-platform SEV-SNP measurement mismatch" {
		t.Fatalf("expected SEV-SNP mismatch, got %v", err)
	}
}

func TestEqual_MultiVsUnsupported(t *testing.T) {
	code := Measurement{Platform: SNPTDXMultiV1, Registers: []string{"X", "Y", "Z"}}
	runtime := Measurement{Platform: Unsupported("SGX_GUEST_V1"), Registers: []string{"X"}}
	err := Equal(code, runtime)
	want := "unsupported enclave platform for multi-platform code measurements: SGX_GUEST_V1"
	if err == nil || err.Error() != want {
		t.Fatalf("expected %q, got %v", want, err)
	}
}

func TestEqual_SamePlatform(t *testing.T) {
	a := Measurement{Platform: TDXGuestV1, Registers: []string{"M", "R0", "R1", "R2"}}
	b := Measurement{Platform: TDXGuestV1, Registers: []string{"M", "R0", "R1", "R2"}}
	if err := Equal(a, b); err != nil {
		t.Fatalf("expected equal, got %v", err)
	}

	c := Measurement{Platform: TDXGuestV1, Registers: []string{"M", "R0", "R1", "different"}}
	err := Equal(a, c)
	if err == nil || err.Error() != "measurement mismatch" {
		t.Fatalf("expected measurement mismatch, got %v", err)
	}
}

func TestEqual_FormatMismatch(t *testing.T) {
	a := Measurement{Platform: TDXGuestV1, Registers: []string{"M", "R0", "R1", "R2"}}
	b := Measurement{Platform: SEVSNPGuestV1, Registers: []string{"M"}}
	err := Equal(a, b)
	if err == nil || err.Error() != "attestation format mismatch" {
		t.Fatalf("expected attestation format mismatch, got %v", err)
	}
}
