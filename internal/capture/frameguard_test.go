package capture

import "testing"

func TestFrameGuard_PairedAcquireRelease(t *testing.T) {
	var g frameGuard
	if err := g.begin(); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	g.end()
	if !g.balanced() {
		t.Fatal("guard unbalanced after paired acquire/release")
	}
}

func TestFrameGuard_DoubleAcquireFails(t *testing.T) {
	var g frameGuard
	if err := g.begin(); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if err := g.begin(); err == nil {
		t.Fatal("second acquire without release must fail")
	}
}

func TestFrameGuard_ReleaseIsIdempotent(t *testing.T) {
	var g frameGuard
	if err := g.begin(); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	g.end()
	g.end() // teardown paths call end unconditionally
	if !g.balanced() {
		t.Fatal("double release broke the balance")
	}
	if g.releases != 1 {
		t.Fatalf("idempotent release counted twice: %d", g.releases)
	}
}

func TestFrameGuard_UnreleasedIsUnbalanced(t *testing.T) {
	var g frameGuard
	if err := g.begin(); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if g.balanced() {
		t.Fatal("held frame must report unbalanced")
	}
}
