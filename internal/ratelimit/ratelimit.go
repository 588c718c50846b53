// Package ratelimit provides a defensive client-side limiter on the
// attestation engine's outbound calls (digest fetch, code provenance, live
// attestation, hardware quote), adapted from the corpus's
// infrastructure/ratelimit package. Unlike a server-side limiter guarding
// inbound traffic, this one exists so a caller that re-verifies in a tight
// loop doesn't hammer the release index or the enclave's attestation
// endpoints.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Config configures a Limiter.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig caps the engine at a steady pace well under anything a
// release index or enclave endpoint would consider abusive.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 5, Burst: 10}
}

// Limiter wraps golang.org/x/time/rate for the engine's outbound calls.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter from cfg. A non-positive RequestsPerSecond becomes 5
// (DefaultConfig's rate); a non-positive Burst becomes twice the rate.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a call may proceed immediately, without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
