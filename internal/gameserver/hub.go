package gameserver

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/Muggle-mew/Urba/internal/game/battle"
)

// sendBuffer is the per-connection outbound queue depth. A connection that
// falls this far behind starts losing messages rather than stalling the
// engine; the next full snapshot resynchronizes it.
const sendBuffer = 32

// Client is one registered connection's outbound side. The transport layer
// owns the read side; the hub only ever enqueues.
type Client struct {
	ID   string
	send chan []byte
}

// Outbound returns the channel the transport's write loop must drain. The
// channel is closed when the client is unregistered.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// Hub tracks registered connections and battle rooms, and fans battle
// engine events out to room members. It implements battle.EventSink.
//
// All sends are non-blocking: enqueueing happens under the hub lock, which
// also serializes channel close, so a concurrent unregister can never turn
// into a send on a closed channel.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]struct{}
	logger  *zap.Logger
}

// NewHub creates an empty hub.
//
// Precondition: logger must be non-nil.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]struct{}),
		logger:  logger,
	}
}

// Register adds a connection and returns its client handle.
func (h *Hub) Register(connID string) *Client {
	c := &Client{ID: connID, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[connID] = c
	return c
}

// Unregister removes a connection from the hub and every room, and closes
// its outbound channel. Idempotent.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	for _, members := range h.rooms {
		delete(members, connID)
	}
	close(c.send)
}

// Join subscribes a connection to a battle room.
func (h *Hub) Join(battleID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[battleID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[battleID] = members
	}
	members[connID] = struct{}{}
}

// CloseRoom drops a battle room. Members stay registered.
func (h *Hub) CloseRoom(battleID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, battleID)
}

// SendTo enqueues a message for a single connection. Unknown connections
// are ignored.
func (h *Hub) SendTo(connID string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshalling server message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.enqueueLocked(connID, data)
}

// broadcast enqueues a message for every member of a battle room.
func (h *Hub) broadcast(battleID string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshalling server message",
			zap.String("battle_id", battleID),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.rooms[battleID] {
		h.enqueueLocked(connID, data)
	}
}

// enqueueLocked delivers to one client without blocking. Caller must hold
// h.mu (read or write).
func (h *Hub) enqueueLocked(connID string, data []byte) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn("dropping message for slow connection",
			zap.String("conn_id", connID),
		)
	}
}

// BattleState implements battle.EventSink.
func (h *Hub) BattleState(battleID string, s battle.Snapshot) {
	h.broadcast(battleID, stateMessage(battleID, s))
}

// MoveAccepted implements battle.EventSink. The notification carries no
// move content, so broadcasting it to the whole room is safe.
func (h *Hub) MoveAccepted(battleID, participantID string) {
	h.broadcast(battleID, turnMessage(battleID, participantID))
}

// RoundResolved implements battle.EventSink.
func (h *Hub) RoundResolved(battleID string, r battle.RoundReport) {
	h.broadcast(battleID, resultMessage(battleID, r))
}

// BattleEnded implements battle.EventSink. The end message is the last one
// delivered for the battle; the room is dropped immediately after.
func (h *Hub) BattleEnded(battleID, winnerID string, reward battle.Reward) {
	h.broadcast(battleID, endMessage(battleID, winnerID, reward))
	h.CloseRoom(battleID)
}
