package hpke

import (
	"context"
	"crypto/ecdh"
	"encoding/hex"
	"sync"
)

// cellState names the three states of a transport cell (spec §4.4
// "Concurrency": construction is single-flight; on build failure the stored
// promise is removed so the next call retries).
type cellState int

const (
	cellEmpty cellState = iota
	cellBuilding
	cellReady
)

// handle is the built transport state bound to one key origin: the server's
// parsed HPKE public key and its hex form for pin comparison.
type handle struct {
	serverPublicKey    *ecdh.PublicKey
	serverPublicKeyHex string
}

// cell is a hand-rolled once-cell that, unlike sync.Once, can be reset after
// a failed build so a later call retries instead of replaying the same
// error forever.
type cell struct {
	mu       sync.Mutex
	state    cellState
	handle   *handle
	err      error
	waiters  []chan struct{}
	build    func(ctx context.Context) (*handle, error)
}

func newCell(build func(ctx context.Context) (*handle, error)) *cell {
	return &cell{build: build}
}

// get returns the built handle, building it if necessary. Concurrent callers
// during a build share the single in-flight attempt.
func (c *cell) get(ctx context.Context) (*handle, error) {
	c.mu.Lock()
	switch c.state {
	case cellReady:
		h := c.handle
		c.mu.Unlock()
		return h, nil
	case cellBuilding:
		wait := make(chan struct{})
		c.waiters = append(c.waiters, wait)
		c.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return c.get(ctx)
	default: // cellEmpty
		c.state = cellBuilding
		c.mu.Unlock()
	}

	h, err := c.build(ctx)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	if err != nil {
		c.state = cellEmpty
		c.err = err
	} else {
		c.state = cellReady
		c.handle = h
		c.err = nil
	}
	c.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}

	if err != nil {
		return nil, err
	}
	return h, nil
}

// invalidate resets the cell to empty, forcing the next get to rebuild — used
// when a key-pin mismatch is discovered after the handle was already built.
func (c *cell) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = cellEmpty
	c.handle = nil
}

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}
