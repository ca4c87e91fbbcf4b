package ipc

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, 1*time.Second)

	// First 3 should be allowed
	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Errorf("attempt %d should be allowed", i+1)
		}
	}

	// 4th should be rejected
	if rl.Allow() {
		t.Error("4th attempt should be rejected")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(2, 100*time.Millisecond)

	if !rl.Allow() {
		t.Error("first attempt should be allowed")
	}
	if !rl.Allow() {
		t.Error("second attempt should be allowed")
	}
	if rl.Allow() {
		t.Error("third attempt should be rejected")
	}

	// Wait for window to expire
	time.Sleep(150 * time.Millisecond)

	if !rl.Allow() {
		t.Error("should be allowed after window expires")
	}
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewRateLimiter(1, 1*time.Minute)

	if !rl.Allow() {
		t.Error("first should be allowed")
	}
	if rl.Allow() {
		t.Error("second should be rejected")
	}

	rl.Reset()

	if !rl.Allow() {
		t.Error("should be allowed after reset")
	}
}
