package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthflow/healthflow-api/pkg/metrics"
)

// Publisher is the interface services use to fan events out. The Hub
// implements it; tests substitute a recorder.
type Publisher interface {
	Publish(groupKey, event string, payload any)
}

// client is one live connection. Writes go through a buffered channel so a
// slow consumer never blocks fan-out.
type client struct {
	connID string
	userID uuid.UUID
	send   chan []byte
	groups map[string]struct{}
}

// Hub maps stable identities to live connections and group memberships.
// All state is process-local and mutex-guarded; bind/unbind/join/leave on
// different connections never contend beyond the map lock.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*client              // connectionID -> client
	groups map[string]map[*client]struct{} // groupKey -> members
	log    *zap.Logger
	m      *metrics.Collector // optional
}

const sendBufferSize = 256

func NewHub(log *zap.Logger, m *metrics.Collector) *Hub {
	return &Hub{
		conns:  make(map[string]*client),
		groups: make(map[string]map[*client]struct{}),
		log:    log,
		m:      m,
	}
}

// Bind registers a connection for a user and auto-joins the personal group,
// so every device of the user receives pushes addressed to the identity.
func (h *Hub) Bind(connID string, userID uuid.UUID) {
	c := &client{
		connID: connID,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
		groups: make(map[string]struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.conns[connID]; ok {
		h.removeLocked(old)
	}
	h.conns[connID] = c
	h.joinLocked(c, UserGroup(userID))

	if h.m != nil {
		h.m.WSConnections.Set(float64(len(h.conns)))
	}
}

// Unbind removes the connection from every group it belongs to and closes
// its send channel. It runs on both graceful and abnormal disconnects; no
// stale membership survives it.
func (h *Hub) Unbind(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return
	}
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	for key := range c.groups {
		h.leaveLocked(c, key)
	}
	delete(h.conns, c.connID)
	close(c.send)

	if h.m != nil {
		h.m.WSConnections.Set(float64(len(h.conns)))
	}
}

// JoinGroup adds the connection to an explicit group such as a doctor feed
// or a chat room. Unknown connections are ignored.
func (h *Hub) JoinGroup(connID, groupKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return
	}
	h.joinLocked(c, groupKey)
}

// LeaveGroup removes the connection from one group.
func (h *Hub) LeaveGroup(connID, groupKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return
	}
	h.leaveLocked(c, groupKey)
}

func (h *Hub) joinLocked(c *client, groupKey string) {
	if h.groups[groupKey] == nil {
		h.groups[groupKey] = make(map[*client]struct{})
	}
	h.groups[groupKey][c] = struct{}{}
	c.groups[groupKey] = struct{}{}
}

func (h *Hub) leaveLocked(c *client, groupKey string) {
	if members, ok := h.groups[groupKey]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, groupKey)
		}
	}
	delete(c.groups, groupKey)
}

// UserOf returns the identity bound to a connection.
func (h *Hub) UserOf(connID string) (uuid.UUID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.conns[connID]
	if !ok {
		return uuid.Nil, false
	}
	return c.userID, true
}

// Publish delivers the event to every connection currently in the group.
// A vanished or saturated recipient is skipped, never an error: delivery
// failures must not propagate to the operation that triggered them.
func (h *Hub) Publish(groupKey, event string, payload any) {
	data, err := json.Marshal(Envelope{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.log.Error("failed to marshal realtime event",
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}

	if h.m != nil {
		h.m.WSEventsTotal.WithLabelValues(event).Inc()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.groups[groupKey] {
		select {
		case c.send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
			if h.m != nil {
				h.m.WSEventsDropped.Inc()
			}
		}
	}
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// GroupSize returns the number of connections in a group.
func (h *Hub) GroupSize(groupKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[groupKey])
}

// sendChan exposes a connection's outbound channel to the transport pumps.
func (h *Hub) sendChan(connID string) (<-chan []byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.conns[connID]
	if !ok {
		return nil, false
	}
	return c.send, true
}
