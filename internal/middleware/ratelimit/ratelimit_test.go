package ratelimit

import (
	"testing"
	"time"
)

func TestAllowEnforcesBudget(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Minute})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.1.2.3") {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if l.Allow("10.1.2.3") {
		t.Fatal("fourth request should be rejected")
	}
	// Another client has its own window.
	if !l.Allow("10.1.2.4") {
		t.Fatal("different client should pass")
	}
}

func TestWindowResets(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	if !l.Allow("10.1.2.3") {
		t.Fatal("first request should pass")
	}
	if l.Allow("10.1.2.3") {
		t.Fatal("over budget")
	}

	// Age the window past a minute.
	l.mu.Lock()
	l.visitors["10.1.2.3"].windowStart = time.Now().Add(-2 * time.Minute)
	l.mu.Unlock()

	if !l.Allow("10.1.2.3") {
		t.Fatal("new window should pass")
	}
}

func TestDropStale(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 10, CleanupInterval: time.Hour})
	defer l.Stop()

	l.Allow("10.1.2.3")
	l.Allow("10.1.2.4")

	l.mu.Lock()
	l.visitors["10.1.2.3"].windowStart = time.Now().Add(-time.Hour)
	l.mu.Unlock()

	l.dropStale()
	if n := l.ActiveClients(); n != 1 {
		t.Fatalf("active clients: %d", n)
	}
}
