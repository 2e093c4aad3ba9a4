package ws

import (
	"sync"
)

// room is the set of local connections in one broadcast group.
type room struct {
	mu    sync.RWMutex
	conns map[*clientConn]struct{}
}

func newRoom() *room { return &room{conns: map[*clientConn]struct{}{}} }

func (r *room) add(c *clientConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; ok {
		return false
	}
	r.conns[c] = struct{}{}
	return true
}

func (r *room) remove(c *clientConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		return false
	}
	delete(r.conns, c)
	return true
}

func (r *room) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// broadcast queues msg on every member and returns the ones whose queue was
// full.
func (r *room) broadcast(msg []byte) []*clientConn {
	// Take a quick snapshot of the current connections
	r.mu.RLock()
	conns := make([]*clientConn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	var slow []*clientConn
	for _, c := range conns {
		if !c.enqueue(msg) {
			slow = append(slow, c)
		}
	}
	return slow
}
