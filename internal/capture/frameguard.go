package capture

import "fmt"

// frameGuard enforces the duplication protocol's core invariant: release
// exactly once for every successful acquire, even on error paths. Sessions
// route all frame access through withFrame so a second acquire without a
// release is unrepresentable rather than merely discouraged.
type frameGuard struct {
	held     bool
	acquires uint64
	releases uint64
}

// begin records a successful acquire. It returns an error instead of
// acquiring twice; hitting it indicates a programming error in the session.
func (g *frameGuard) begin() error {
	if g.held {
		return fmt.Errorf("frame already held: acquire without matching release")
	}
	g.held = true
	g.acquires++
	return nil
}

// end records the matching release. Idempotent so teardown can call it
// unconditionally.
func (g *frameGuard) end() {
	if !g.held {
		return
	}
	g.held = false
	g.releases++
}

// balanced reports whether every acquire has been matched by a release.
func (g *frameGuard) balanced() bool {
	return !g.held && g.acquires == g.releases
}
