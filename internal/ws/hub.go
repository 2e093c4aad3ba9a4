package ws

import (
	"encoding/json"
	"sync"

	"gamelobby/internal/metrics"

	"go.uber.org/zap"
)

// Hub is the in-process lobby.Bus: live connections by id and group
// membership by group name.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*clientConn
	rooms map[string]*room
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*clientConn),
		rooms: make(map[string]*room),
	}
}

func (h *Hub) register(c *clientConn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(c *clientConn) {
	h.mu.Lock()
	if cur, ok := h.conns[c.id]; ok && cur == c {
		delete(h.conns, c.id)
	}
	h.mu.Unlock()
}

func (h *Hub) conn(id string) (*clientConn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

func (h *Hub) Join(group, connID string) { h.join(group, connID) }

func (h *Hub) Leave(group, connID string) { h.leave(group, connID) }

// join reports whether connID was newly added to group.
func (h *Hub) join(group, connID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return false
	}
	r, ok := h.rooms[group]
	if !ok {
		r = newRoom()
		h.rooms[group] = r
	}
	return r.add(c)
}

// leave reports whether connID was a member of group. Empty groups are dropped.
func (h *Hub) leave(group, connID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return false
	}
	r, ok := h.rooms[group]
	if !ok || !r.remove(c) {
		return false
	}
	if r.len() == 0 {
		delete(h.rooms, group)
	}
	return true
}

func (h *Hub) Publish(group string, event any) {
	msg, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("ws.marshal", zap.String("group", group), zap.Error(err))
		return
	}
	h.Broadcast(group, msg)
}

// Broadcast delivers an encoded event to the local members of group. The
// Redis subscriber calls it for remote publishes.
func (h *Hub) Broadcast(group string, msg []byte) {
	h.mu.RLock()
	r, ok := h.rooms[group]
	h.mu.RUnlock()
	if !ok {
		return
	}
	for _, c := range r.broadcast(msg) {
		h.dropSlow(c)
	}
}

func (h *Hub) SendTo(connID string, event any) {
	c, ok := h.conn(connID)
	if !ok {
		return
	}
	msg, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("ws.marshal", zap.String("conn", connID), zap.Error(err))
		return
	}
	if !c.enqueue(msg) {
		h.dropSlow(c)
	}
}

func (h *Hub) Close(connID string, code int, reason string) {
	if c, ok := h.conn(connID); ok {
		c.closeWith(code, reason)
	}
}

// dropSlow kills a connection whose send queue overflowed; its reader then
// runs the disconnect cascade.
func (h *Hub) dropSlow(c *clientConn) {
	metrics.SlowConsumers.Inc()
	zap.L().Warn("ws.slow_consumer", zap.String("conn", c.id))
	c.kill()
}
