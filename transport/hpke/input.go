// Package hpke implements the HPKE-encrypted transport (spec C4): it delivers
// an application request to the enclave with the body encrypted to the
// enclave's HPKE public key and enforces a key pin against the attested
// value.
package hpke

import (
	"fmt"
	"io"
	"net/http"

	"github.com/tinfoilsh/confidential-client-go/internal/httpkit"
)

// RequestInput is the normalized form of a caller's request, matching spec
// §4.4's "a string or URL is taken verbatim; a request-like object is cloned"
// normalization rule. StringInput or FromRequest builds a value and Override
// layers caller fields on top; Transport.Do resolves its ref against the base
// URL and builds the concrete *http.Request.
type RequestInput struct {
	ref      string
	prepared *PreparedInput
}

// PreparedInput carries the method/header/body/cancellation fields a
// request-like object contributes per spec §4.4 step 1.
type PreparedInput struct {
	Method string
	Header http.Header
	Body   io.Reader
	Signal <-chan struct{}
}

// StringInput builds a RequestInput from a bare URL or path string, covering
// spec §4.4 step 1's "a string or URL is taken verbatim" case (a caller
// holding a *url.URL passes its String() form).
func StringInput(ref string) RequestInput {
	return RequestInput{ref: ref}
}

// FromRequest builds a RequestInput from an existing *http.Request, covering
// spec §4.4 step 1's "a request-like object is cloned" case: method, header,
// body and cancellation signal all carry over. The clone goes through
// httpkit.CloneRequest so the body is buffered rather than aliasing req's
// original reader.
func FromRequest(req *http.Request) (RequestInput, error) {
	clone, err := httpkit.CloneRequest(req.Context(), req)
	if err != nil {
		return RequestInput{}, fmt.Errorf("cloning request: %w", err)
	}
	prepared := &PreparedInput{
		Method: clone.Method,
		Header: clone.Header,
		Body:   clone.Body,
		Signal: clone.Context().Done(),
	}
	return RequestInput{ref: clone.URL.String(), prepared: prepared}, nil
}

// Override applies caller-provided init fields on top of a cloned request's
// fields, per spec §4.4 step 1: "Caller-provided init overrides fields from
// the cloned request."
func (ri RequestInput) Override(init *PreparedInput) RequestInput {
	if init == nil {
		return ri
	}
	merged := &PreparedInput{}
	if ri.prepared != nil {
		*merged = *ri.prepared
	}
	if init.Method != "" {
		merged.Method = init.Method
	}
	if init.Header != nil {
		if merged.Header == nil {
			merged.Header = init.Header
		} else {
			for k, v := range init.Header {
				merged.Header[k] = v
			}
		}
	}
	if init.Body != nil {
		merged.Body = init.Body
	}
	if init.Signal != nil {
		merged.Signal = init.Signal
	}
	ri.prepared = merged
	return ri
}

func (ri RequestInput) method() string {
	if ri.prepared != nil && ri.prepared.Method != "" {
		return ri.prepared.Method
	}
	return http.MethodGet
}

func (ri RequestInput) body() io.Reader {
	if ri.prepared == nil {
		return nil
	}
	return ri.prepared.Body
}

func (ri RequestInput) header() http.Header {
	if ri.prepared == nil {
		return nil
	}
	return ri.prepared.Header
}

func (ri RequestInput) signal() <-chan struct{} {
	if ri.prepared == nil {
		return nil
	}
	return ri.prepared.Signal
}
