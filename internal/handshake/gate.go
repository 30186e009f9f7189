package handshake

import (
	"context"
	"sync"
)

// Gate is the completion gate for read/write sequences.
//
// A manager holds the gate for the duration of one in-flight sequence and
// waits on it as a rendezvous: whichever asynchronous event ends the
// sequence (success, retry exhaustion, cursor termination) releases the
// gate, which both unblocks the waiting caller and re-admits the next
// sequence. Exactly one sequence may be in flight at a time; a second
// Begin blocks until the first sequence's Release.
//
// The gate is an explicit completion signal (a capacity-1 admission
// channel plus a per-sequence done channel) rather than a mutex locked
// twice. Release is idempotent within a sequence.
type Gate struct {
	sem chan struct{}

	mu   sync.Mutex
	done chan struct{}
}

// NewGate creates an idle gate.
func NewGate() *Gate {
	return &Gate{sem: make(chan struct{}, 1)}
}

// Begin admits a new sequence, blocking while another is in flight.
//
// Returns ctx.Err() if the context ends first.
func (g *Gate) Begin(ctx context.Context) error {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.mu.Lock()
	g.done = make(chan struct{})
	g.mu.Unlock()
	return nil
}

// Wait blocks the caller until the in-flight sequence is released.
//
// Returns ctx.Err() if the context ends first; the sequence itself keeps
// running and must still be released.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	done := g.done
	g.mu.Unlock()

	if done == nil {
		return nil // No sequence in flight
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release ends the in-flight sequence, unblocking Wait and admitting the
// next Begin. Releasing an idle gate, or releasing twice, is a no-op.
func (g *Gate) Release() {
	g.mu.Lock()
	if g.done != nil {
		close(g.done)
		g.done = nil
	}
	g.mu.Unlock()

	select {
	case <-g.sem:
	default:
	}
}

// InFlight reports whether a sequence currently holds the gate.
func (g *Gate) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done != nil
}
