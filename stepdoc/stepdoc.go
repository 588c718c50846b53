// Package stepdoc implements the step-status model of spec §3/§8: a record of
// pending/success/failed for each stage of an attestation run, produced even on
// failure so callers can render progress UIs.
package stepdoc

import (
	"encoding/json"

	"github.com/tinfoilsh/confidential-client-go/internal/enclaveerrors"
)

// Status is the lifecycle state of a single pipeline step.
type Status string

const (
	Pending Status = "pending"
	Success Status = "success"
	Failed  Status = "failed"
)

// Step is one entry of a Document.
type Step struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Document is the step map of spec §3. New includes every step in coreOrder,
// verifyHardware and validateTLS among them; a caller may delete a step that
// did not apply (the verifier drops verifyHardware from a successful run
// without a hardware measurement).
type Document map[enclaveerrors.Step]Step

// coreOrder is the sequence of pipeline steps, in the order the engine runs
// them; verifyHardware runs only for TDX platforms.
var coreOrder = []enclaveerrors.Step{
	enclaveerrors.FetchDigest,
	enclaveerrors.VerifyCode,
	enclaveerrors.VerifyEnclave,
	enclaveerrors.VerifyHardware,
	enclaveerrors.ValidateTLS,
	enclaveerrors.Measurements,
}

// New returns a Document with every core step marked Pending.
func New() Document {
	d := make(Document, len(coreOrder))
	for _, s := range coreOrder {
		d[s] = Step{Status: Pending}
	}
	return d
}

// MarkSuccess records a step as having completed successfully.
func (d Document) MarkSuccess(step enclaveerrors.Step) {
	d[step] = Step{Status: Success}
}

// MarkFailed records a step as failed, capturing the error's message. Every
// step after this one (in coreOrder) remains Pending, matching spec §4.8's
// requirement that later steps stay pending on a failed verify().
func (d Document) MarkFailed(step enclaveerrors.Step, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	d[step] = Step{Status: Failed, Error: msg}
}

// Clone returns an independent copy so callers can't mutate a verifier's
// internal state through a returned document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// docKey maps a pipeline step to its step-document key. This differs from the
// step's error-prefix spelling (spec §4.8) only for the measurement
// cross-check: spec §3/§8 name the document entry "compareMeasurements" while
// the error it produces still starts with the "measurements:" prefix.
func docKey(step enclaveerrors.Step) string {
	if step == enclaveerrors.Measurements {
		return "compareMeasurements"
	}
	return string(step)
}

// MarshalJSON renders d keyed by docKey rather than the internal
// enclaveerrors.Step spelling, so the JSON a caller sees matches spec §3/§8's
// step names exactly.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]Step, len(d))
	for step, s := range d {
		out[docKey(step)] = s
	}
	return json.Marshal(out)
}
