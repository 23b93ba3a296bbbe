package hub

import (
	"encoding/json"
	"sync"

	"github.com/miratalk/relay/internal/config"
	"github.com/miratalk/relay/internal/log"
)

// Hub is the connection registry: it owns the mapping from rooms to
// live subscribed connections and fans events out to them. A client
// may be subscribed to any number of rooms at once.
type Hub struct {
	clients    map[string]*Client            // connID -> client
	rooms      map[string]map[string]*Client // roomID -> connID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomEvent
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

type roomEvent struct {
	roomID  string
	payload []byte
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Str(log.FieldUserID, client.Identity.UserID).Msg("connection registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for roomID, subs := range h.rooms {
					delete(subs, client.ID)
					if len(subs) == 0 {
						delete(h.rooms, roomID)
					}
				}
				delete(h.clients, client.ID)
				close(client.done)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Msg("connection unregistered")

		case ev := <-h.broadcast:
			h.mu.RLock()
			subs := make([]*Client, 0, len(h.rooms[ev.roomID]))
			for _, client := range h.rooms[ev.roomID] {
				subs = append(subs, client)
			}
			h.mu.RUnlock()

			for _, client := range subs {
				select {
				case client.Send <- ev.payload:
				case <-client.done:
				default:
					// Send queue full: the client cannot keep up,
					// drop the connection.
					go h.removeClient(client)
				}
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom adds client to the room's subscriber set. Idempotent on the
// set: joining twice leaves a single subscription.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	client.addRoom(roomID)
	l := log.L()
	l.Info().Str(log.FieldConnID, client.ID).Str(log.FieldRoomID, roomID).Msg("connection joined room")
}

// LeaveRoom removes client from the room's subscriber set.
func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.rooms[roomID]; ok {
		delete(subs, client.ID)
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
	client.removeRoom(roomID)
	l := log.L()
	l.Info().Str(log.FieldConnID, client.ID).Str(log.FieldRoomID, roomID).Msg("connection left room")
}

// BroadcastToRoom delivers event to every connection currently
// subscribed to the room, the acting connection included.
func (h *Hub) BroadcastToRoom(roomID string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.broadcast <- &roomEvent{roomID: roomID, payload: data}
	return nil
}

// RoomClientCount returns the number of live subscribers of a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.rooms[roomID]; ok {
		return len(subs)
	}
	return 0
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
