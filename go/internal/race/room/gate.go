package room

import "sync"

// Gate guards the terminal commit of a session: a score submission or a
// cancellation. The first Acquire wins and every later one is refused until
// the winner resolves. A successful resolve closes the gate for good; a
// failed one reopens it so the user can retry by hand.
type Gate struct {
	mu        sync.Mutex
	committed bool
	inFlight  bool
	op        CommitOp
}

// Acquire claims the gate for op. It returns false while another commit is in
// flight or once a commit has succeeded.
func (g *Gate) Acquire(op CommitOp) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.committed || g.inFlight {
		return false
	}
	g.inFlight = true
	g.op = op
	return true
}

// Resolve records the outcome of the in-flight commit.
func (g *Gate) Resolve(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.inFlight {
		return
	}
	g.inFlight = false
	if err == nil {
		g.committed = true
	}
}

// Committed reports whether a terminal commit has succeeded. It never goes
// back to false.
func (g *Gate) Committed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.committed
}

// InFlight reports whether a commit is waiting for the authority.
func (g *Gate) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Op is the operation that last acquired the gate.
func (g *Gate) Op() CommitOp {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.op
}
