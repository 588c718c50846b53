package httpkit

import (
	"crypto/tls"
	"net/http"
	"time"
)

// DefaultTransportWithMinTLS12 clones http.DefaultTransport (when possible)
// and enforces a TLS 1.2 floor for outbound calls, matching the corpus's
// baseline for any transport this library builds on.
func DefaultTransportWithMinTLS12() *http.Transport {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		base = &http.Transport{}
	}
	cloned := base.Clone()

	if cloned.TLSClientConfig != nil {
		cloned.TLSClientConfig = cloned.TLSClientConfig.Clone()
	} else {
		cloned.TLSClientConfig = &tls.Config{}
	}
	if cloned.TLSClientConfig.MinVersion < tls.VersionTLS12 {
		cloned.TLSClientConfig.MinVersion = tls.VersionTLS12
	}

	return cloned
}

// CopyClientWithTimeout returns a shallow copy of base with Timeout set,
// leaving base itself untouched so it is safe to share across callers.
func CopyClientWithTimeout(base *http.Client, timeout time.Duration) *http.Client {
	if base == nil {
		return &http.Client{Timeout: timeout}
	}
	copied := *base
	copied.Timeout = timeout
	return &copied
}
