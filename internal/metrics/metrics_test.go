package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordStepIncrementsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-client", reg)

	m.RecordStep("test-client", "fetchDigest", "success", 50*time.Millisecond)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "tinfoil_attestation_steps_total" {
			found = true
			if len(mf.Metric) != 1 || mf.Metric[0].Counter.GetValue() != 1 {
				t.Errorf("expected one step recorded, got %+v", mf.Metric)
			}
		}
	}
	if !found {
		t.Fatalf("expected tinfoil_attestation_steps_total to be registered")
	}
}

func TestRecordKeyMismatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-client", reg)

	m.RecordKeyMismatch("test-client", "hpke")

	metricFamilies, _ := reg.Gather()
	var mismatch *dto.MetricFamily
	for _, mf := range metricFamilies {
		if mf.GetName() == "tinfoil_key_mismatches_total" {
			mismatch = mf
		}
	}
	if mismatch == nil || len(mismatch.Metric) != 1 || mismatch.Metric[0].Counter.GetValue() != 1 {
		t.Fatalf("expected one key mismatch recorded")
	}
}

func TestGlobalReturnsSameInstance(t *testing.T) {
	global = nil
	a := Global()
	b := Global()
	if a != b {
		t.Errorf("expected Global() to return the same instance")
	}
}
