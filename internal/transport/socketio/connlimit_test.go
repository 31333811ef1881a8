package socketio

import (
	"fmt"
	"testing"
)

func TestConnectionLimiterLoopbackUnlimited(t *testing.T) {
	cl := NewConnectionLimiter(1)
	cl.TryAdd("ext-1", "192.168.1.100")

	for i, remote := range []string{"127.0.0.1", "::1", "127.0.0.1:51234", "::ffff:127.0.0.1"} {
		allowed, evicted := cl.TryAdd(fmt.Sprintf("local-%d", i), remote)
		if !allowed || evicted != "" {
			t.Errorf("loopback %s: allowed=%v evicted=%q", remote, allowed, evicted)
		}
	}
	if got := cl.ExternalCount(); got != 1 {
		t.Errorf("expected 1 external client, got %d", got)
	}
}

func TestConnectionLimiterEvictsOldestExternal(t *testing.T) {
	cl := NewConnectionLimiter(2)

	steps := []struct {
		id      string
		evicted string
	}{
		{"first", ""},
		{"second", ""},
		{"third", "first"},
		{"fourth", "second"},
	}
	for _, s := range steps {
		allowed, evicted := cl.TryAdd(s.id, "10.0.0.1")
		if !allowed {
			t.Errorf("%s should be allowed", s.id)
		}
		if evicted != s.evicted {
			t.Errorf("%s: expected eviction %q, got %q", s.id, s.evicted, evicted)
		}
	}
}

func TestConnectionLimiterRemoveFreesSlot(t *testing.T) {
	cl := NewConnectionLimiter(1)
	cl.TryAdd("ext-1", "192.168.1.100")
	cl.Remove("ext-1")

	if _, evicted := cl.TryAdd("ext-2", "192.168.1.101"); evicted != "" {
		t.Errorf("should not evict after removal freed a slot, got %s", evicted)
	}

	// Unknown IDs are ignored.
	cl.Remove("nonexistent")
	if got := cl.ExternalCount(); got != 1 {
		t.Errorf("expected 1 external client, got %d", got)
	}
}

func TestConnectionLimiterDuplicateAddIsIdempotent(t *testing.T) {
	cl := NewConnectionLimiter(1)
	cl.TryAdd("ext-1", "192.168.1.100")

	allowed, evicted := cl.TryAdd("ext-1", "192.168.1.100")
	if !allowed || evicted != "" {
		t.Errorf("duplicate add: allowed=%v evicted=%q", allowed, evicted)
	}
}

func TestConnectionLimiterZeroRejectsExternal(t *testing.T) {
	cl := NewConnectionLimiter(0)

	if allowed, _ := cl.TryAdd("ext-1", "192.168.1.100"); allowed {
		t.Error("external client should be rejected with no slots")
	}
	if allowed, _ := cl.TryAdd("local", "127.0.0.1"); !allowed {
		t.Error("loopback client should always be allowed")
	}
}

func TestIsLocalIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"127.0.0.1", true},
		{"127.0.0.1:8080", true},
		{"::1", true},
		{"[::1]:8080", true},
		{"192.168.1.100", false},
		{"10.0.0.1:443", false},
		{"0.0.0.0", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := isLocalIP(tc.ip); got != tc.expected {
			t.Errorf("isLocalIP(%q) = %v, want %v", tc.ip, got, tc.expected)
		}
	}
}
