package market

import "sync/atomic"

// entryGuard is the engine's global mutual-exclusion discipline: one
// in-progress flag covering every mutating entry point. Operations execute
// one at a time to completion; any call arriving while one is in flight —
// including a collaborator calling back into the engine mid-operation — is
// rejected with ErrReentrantCall rather than queued or deadlocked. Callers
// resubmit, the way a rejected transaction is resubmitted.
type entryGuard struct {
	busy atomic.Bool
}

// enter marks a transaction in progress. Fails if one already is.
func (g *entryGuard) enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

// exit clears the in-progress flag.
func (g *entryGuard) exit() {
	g.busy.Store(false)
}
