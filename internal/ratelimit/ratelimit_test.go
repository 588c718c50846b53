package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowRespectsBurst(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 2})
	if !l.Allow() {
		t.Fatalf("expected first call to be allowed")
	}
	if !l.Allow() {
		t.Fatalf("expected second call within burst to be allowed")
	}
	if l.Allow() {
		t.Fatalf("expected third call to exceed burst")
	}
}

func TestWaitUnblocksWithinDeadline(t *testing.T) {
	l := New(Config{RequestsPerSecond: 100, Burst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultConfigFillsZeroValues(t *testing.T) {
	l := New(Config{})
	if l.limiter == nil {
		t.Fatalf("expected limiter to be constructed")
	}
}
