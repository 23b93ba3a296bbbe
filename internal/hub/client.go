package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/miratalk/relay/internal/config"
	"github.com/miratalk/relay/internal/domain"
	"github.com/miratalk/relay/internal/log"
)

// Client is one live websocket connection. Identity is resolved before
// the client is registered and never changes afterwards. The room set
// records which rooms this connection is subscribed to so a disconnect
// can leave them all.
//
// Send is never closed. The hub closes done when it unregisters the
// client, so a frame queued after unregistration is dropped instead of
// hitting a closed channel.
type Client struct {
	ID       string
	Identity domain.Identity
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte

	done   chan struct{}
	rooms  map[string]struct{}
	config config.WebSocketConfig
}

func NewClient(id string, identity domain.Identity, hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	return &Client{
		ID:       id,
		Identity: identity,
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		rooms:    make(map[string]struct{}),
		config:   cfg,
	}
}

// Rooms returns a snapshot of the rooms this connection is subscribed to.
func (c *Client) Rooms() []string {
	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()

	out := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		out = append(out, roomID)
	}
	return out
}

// InRoom reports whether this connection is subscribed to roomID.
func (c *Client) InRoom(roomID string) bool {
	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	_, ok := c.rooms[roomID]
	return ok
}

// addRoom and removeRoom are called with the hub mutex held.
func (c *Client) addRoom(roomID string)    { c.rooms[roomID] = struct{}{} }
func (c *Client) removeRoom(roomID string) { delete(c.rooms, roomID) }

// ReadPump reads frames until the connection drops, passing each to
// handler. onClose runs exactly once after the read loop exits, before
// the connection is unregistered.
func (c *Client) ReadPump(handler func(*Client, []byte), onClose func(*Client)) {
	defer func() {
		onClose(c)
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Warn().Str(log.FieldConnID, c.ID).Err(err).Msg("websocket read error")
			}
			break
		}

		handler(c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendFrame queues a point-to-point frame on this connection. A full
// queue or an already unregistered client drops the frame rather than
// blocking or panicking the caller.
func (c *Client) SendFrame(frame interface{}) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
	case <-c.done:
	default:
	}
	return nil
}
