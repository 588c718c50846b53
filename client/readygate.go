package client

import "sync"

// readyGate is a hand-rolled once-cell: like sync.Once but resettable, so a
// failed ready() leaves the client in a consistent "not ready" state and a
// later call retries from the top (spec §5's cancellation/retry rule). A
// fresh sync.Once can't be reset without replacing the whole struct, which
// would race against concurrent waiters holding a reference to the old one.
type readyGate struct {
	mu      sync.Mutex
	state   gateState
	err     error
	waiters []chan struct{}
}

type gateState int

const (
	gateNotReady gateState = iota
	gateReadying
	gateReady
)

// do runs build at most once concurrently; concurrent callers during a build
// wait for it and share a success. On error the gate resets to gateNotReady
// and returns the error to the caller that ran build; each waiting caller then
// retries build itself instead of replaying the same failure.
func (g *readyGate) do(build func() error) error {
	g.mu.Lock()
	switch g.state {
	case gateReady:
		g.mu.Unlock()
		return nil
	case gateReadying:
		wait := make(chan struct{})
		g.waiters = append(g.waiters, wait)
		g.mu.Unlock()
		<-wait
		return g.do(build)
	default: // gateNotReady
		g.state = gateReadying
		g.mu.Unlock()
	}

	err := build()

	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	if err != nil {
		g.state = gateNotReady
		g.err = err
	} else {
		g.state = gateReady
		g.err = nil
	}
	g.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
	return err
}
