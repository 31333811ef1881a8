package socketio

import (
	"net"
	"slices"
	"sync"
)

// ConnectionLimiter caps concurrent non-loopback clients. Loopback clients
// are never limited. Past the cap the oldest external client is evicted.
type ConnectionLimiter struct {
	mu          sync.Mutex
	maxExternal int
	external    []string          // oldest first
	remotes     map[string]string // clientID -> remote address
}

// NewConnectionLimiter creates a limiter that allows up to maxExternal
// concurrent external clients.
func NewConnectionLimiter(maxExternal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxExternal: maxExternal,
		remotes:     make(map[string]string),
	}
}

// TryAdd registers a client. evictedID names a client that must now be
// disconnected, or is empty.
func (cl *ConnectionLimiter) TryAdd(clientID, remote string) (allowed bool, evictedID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, ok := cl.remotes[clientID]; ok {
		return true, ""
	}
	cl.remotes[clientID] = remote

	if isLocalIP(remote) {
		return true, ""
	}
	if cl.maxExternal <= 0 {
		delete(cl.remotes, clientID)
		return false, ""
	}

	cl.external = append(cl.external, clientID)
	if len(cl.external) > cl.maxExternal {
		evictedID = cl.external[0]
		cl.external = cl.external[1:]
		delete(cl.remotes, evictedID)
	}
	return true, evictedID
}

// Remove unregisters a disconnected client.
func (cl *ConnectionLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, ok := cl.remotes[clientID]; !ok {
		return
	}
	delete(cl.remotes, clientID)
	if i := slices.Index(cl.external, clientID); i >= 0 {
		cl.external = slices.Delete(cl.external, i, i+1)
	}
}

// ExternalCount returns the number of tracked external clients.
func (cl *ConnectionLimiter) ExternalCount() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.external)
}

// isLocalIP reports whether remote is a loopback address, with or without a
// port and including IPv4-mapped IPv6 forms.
func isLocalIP(remote string) bool {
	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
