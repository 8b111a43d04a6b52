package indexer

import "sync/atomic"

// rebuildGate is a non-blocking lock around full index rebuilds. A rebuild
// holds it for its whole run so a second rebuild can fail fast with
// ErrRebuildInProgress instead of queueing behind the first.
type rebuildGate struct {
	state atomic.Int32 // 0 = open, 1 = held
}

// tryAcquire takes the gate without blocking, returning false if a rebuild
// already holds it.
func (g *rebuildGate) tryAcquire() bool {
	return g.state.CompareAndSwap(0, 1)
}

// release reopens the gate. Only the goroutine that acquired it may call this.
func (g *rebuildGate) release() {
	g.state.Store(0)
}
