package ratelimit

import (
	"testing"
	"time"
)

func TestPerHostLimit(t *testing.T) {
	l := New(0, 0, 2, 3) // global disabled; 2 conn/s per host; burst 3
	host := "10.0.0.1"

	for i := 0; i < 3; i++ {
		if !l.Allow(host) {
			t.Errorf("Expected connection %d to be allowed for %s", i, host)
		}
	}
	if l.Allow(host) {
		t.Error("Expected connection to be denied after burst")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("Expected a different host to have its own bucket")
	}
}

func TestRefill(t *testing.T) {
	l := New(0, 0, 2, 2)
	host := "10.0.0.1"
	l.Allow(host)
	l.Allow(host)
	if l.Allow(host) {
		t.Fatal("Expected bucket to be empty")
	}
	time.Sleep(1100 * time.Millisecond)
	if !l.Allow(host) {
		t.Error("Expected connection to be allowed after refill")
	}
}

func TestGlobalLimit(t *testing.T) {
	l := New(2, 2, 0, 0) // global 2 conn/s; per-host disabled
	if !l.Allow("a") || !l.Allow("b") {
		t.Error("Expected initial global burst to be allowed")
	}
	if l.Allow("c") {
		t.Error("Expected connection to be denied due to global limit")
	}
	if l.Hosts() != 0 {
		t.Errorf("Expected no per-host state when disabled, got %d", l.Hosts())
	}
}

func TestThrottledHostKeepsGlobalBudget(t *testing.T) {
	l := New(1, 3, 1, 1) // global burst 3; per-host burst 1
	if !l.Allow("a") {
		t.Fatal("Expected first connection from a to be allowed")
	}
	for i := 0; i < 10; i++ {
		if l.Allow("a") {
			t.Fatalf("Expected throttled host to be denied (attempt %d)", i)
		}
	}
	// a's denied attempts must not have spent the remaining two global tokens
	if !l.Allow("b") || !l.Allow("c") {
		t.Error("Expected other hosts to use the remaining global burst")
	}
	if l.Allow("d") {
		t.Error("Expected global budget to be exhausted")
	}
	// d was refused globally, so its per-host token is returned
	if tokens := l.perHost["d"].Tokens(); tokens < 0.99 {
		t.Errorf("Expected d's per-host token to be refunded, have %.2f", tokens)
	}
}

func TestCleanupKeepsDrainedHosts(t *testing.T) {
	l := New(0, 0, 10, 1)
	l.Allow("flood")
	l.Cleanup(nil)
	if l.Hosts() != 1 {
		t.Fatalf("Expected drained host to be kept, have %d hosts", l.Hosts())
	}
	if l.Allow("flood") {
		t.Error("Expected drained host to stay throttled after cleanup")
	}
	time.Sleep(150 * time.Millisecond) // 10/s refills the single token
	l.Cleanup(nil)
	if l.Hosts() != 0 {
		t.Errorf("Expected refilled host to be dropped, have %d hosts", l.Hosts())
	}
}

func TestCleanupKeepsActiveHosts(t *testing.T) {
	l := New(0, 0, 1000, 1)
	l.Allow("a")
	l.Allow("b")
	time.Sleep(20 * time.Millisecond)
	l.Cleanup(map[string]bool{"a": true})
	if l.Hosts() != 1 {
		t.Errorf("Expected 1 host after cleanup, got %d", l.Hosts())
	}
	if _, ok := l.perHost["a"]; !ok {
		t.Error("Expected active host a to remain")
	}
}

func TestDisabled(t *testing.T) {
	l := New(0, 0, 0, 5)
	for i := 0; i < 100; i++ {
		if !l.Allow("a") {
			t.Errorf("Expected connection %d to be allowed when limits disabled", i)
		}
	}
}
