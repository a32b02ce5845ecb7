package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"SigCouncil/internal/domain/models"
)

func TestAllowBurstThenDeny(t *testing.T) {
	l := New(1, 3)
	for i := 0; i < 3; i++ {
		if !l.Allow("api") {
			t.Fatalf("burst token %d denied", i)
		}
	}
	if l.Allow("api") {
		t.Fatal("fourth immediate request must be denied at 1/s with burst 3")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, 1)
	if !l.Allow("a") {
		t.Fatal("first token for a denied")
	}
	if !l.Allow("b") {
		t.Fatal("draining a must not affect b")
	}
}

func TestConfigureOverridesDefaults(t *testing.T) {
	l := New(1, 1)
	l.Configure("fast", 1000, 10)
	for i := 0; i < 10; i++ {
		if !l.Allow("fast") {
			t.Fatalf("configured burst token %d denied", i)
		}
	}
}

func TestWaitSuspendsUntilAvailable(t *testing.T) {
	l := New(50, 1)
	if !l.Allow("api") {
		t.Fatal("first token denied")
	}

	start := time.Now()
	if err := l.Wait(context.Background(), "api"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("wait returned before a token could have refilled")
	}
}

func TestWaitCancelled(t *testing.T) {
	l := New(0.001, 1)
	l.Allow("api") // drain

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, "api")
	if !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on cancelled wait, got %v", err)
	}
}
