package hub

import (
	"encoding/json"
	"sync"

	"github.com/m-atharkhan/FrClass/internal/config"
	"github.com/m-atharkhan/FrClass/internal/registry"
	"github.com/m-atharkhan/FrClass/pkg/log"
)

// Hub owns the live clients and fans events out to room members. All
// deliveries flow through one dispatch loop, so two Publish calls for the
// same room are observed by every session in call order.
type Hub struct {
	clients    map[string]*Client // sessionID -> client
	reg        registry.Registry
	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomEvent
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

type roomEvent struct {
	RoomID  string
	Payload []byte
}

// NewHub creates a hub backed by the given presence registry.
func NewHub(reg registry.Registry, cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		reg:        reg,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		config:     cfg,
	}
}

// Run processes register/unregister/broadcast events. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldSessionID, client.ID).Msg("session registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				h.reg.DropSession(client.ID)
				delete(h.clients, client.ID)
				client.closeSend()
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldSessionID, client.ID).Msg("session unregistered")

		case ev := <-h.broadcast:
			members := h.reg.MembersOf(ev.RoomID)
			h.mu.RLock()
			for _, sessionID := range members {
				client, ok := h.clients[sessionID]
				if !ok {
					continue
				}
				select {
				case client.Send <- ev.Payload:
				default:
					// Slow consumer: drop the connection rather than
					// block delivery to the rest of the room. It
					// catches up via history on reconnect.
					go h.removeClient(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client and drops its presence.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom registers the client's presence in the room. Idempotent.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.reg.Join(client.ID, roomID)
	l := log.L()
	l.Info().Str(log.FieldSessionID, client.ID).Str(log.FieldRoomID, roomID).Msg("session joined room")
}

// LeaveRoom removes the client's presence from the room.
func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.reg.Leave(client.ID, roomID)
	l := log.L()
	l.Info().Str(log.FieldSessionID, client.ID).Str(log.FieldRoomID, roomID).Msg("session left room")
}

// Publish delivers the event to every session currently present in the
// room. Best effort, at most once per session, no retry: callers must have
// persisted the message first.
func (h *Hub) Publish(roomID string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.broadcast <- &roomEvent{
		RoomID:  roomID,
		Payload: data,
	}
	return nil
}

// RoomSize returns the number of sessions currently present in the room.
func (h *Hub) RoomSize(roomID string) int {
	return len(h.reg.MembersOf(roomID))
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
