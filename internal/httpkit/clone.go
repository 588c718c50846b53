package httpkit

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// CloneRequest returns a deep-enough copy of req bound to ctx, with the body
// buffered so it can be replayed if a transport needs to retry the call (the
// resilience layer's retry loop requires this).
func CloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	var bodyBytes []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		bodyBytes = b
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	clone := req.Clone(ctx)
	if bodyBytes != nil {
		clone.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
		clone.ContentLength = int64(len(bodyBytes))
	}
	return clone, nil
}

// MergeHeader copies every value of every key in src into dst, without
// clobbering keys dst already sets explicitly (caller-set headers win).
func MergeHeader(dst, src http.Header) {
	for key, values := range src {
		if _, exists := dst[key]; exists {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
