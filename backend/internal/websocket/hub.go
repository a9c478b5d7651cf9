package websocket

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"

	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

// Hub fans encounter event streams out to subscribed clients. Each room
// is one encounter; every reducer call's event slice is broadcast to the
// encounter's room as a single message. The stream is one-way: commands
// enter over HTTP, never over the socket.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	shutdown   chan struct{}
}

// Client is one connected subscriber of an encounter's event stream.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	id          string
	username    string
	encounterID string
	role        string // "gm" or "spectator"
}

// Message is the wire envelope broadcast to a room. Data carries the
// payload verbatim -- for encounter events, the engine's event slice.
type Message struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId"`
	Data   json.RawMessage `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		shutdown:   make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.shutdown:
			for client := range h.clients {
				close(client.send)
				_ = client.conn.Close()
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			if client.encounterID != "" {
				if h.rooms[client.encounterID] == nil {
					h.rooms[client.encounterID] = make(map[*Client]bool)
				}
				h.rooms[client.encounterID][client] = true
			}
			logger.Info().
				Str("client_id", client.id).
				Str("username", client.username).
				Str("encounter_id", client.encounterID).
				Str("role", client.role).
				Msg("Client subscribed to encounter")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if client.encounterID != "" && h.rooms[client.encounterID] != nil {
					delete(h.rooms[client.encounterID], client)
				}
				close(client.send)
				logger.Info().
					Str("client_id", client.id).
					Str("encounter_id", client.encounterID).
					Msg("Client unsubscribed from encounter")
			}

		case message := <-h.broadcast:
			var msg Message
			if err := json.Unmarshal(message, &msg); err != nil {
				logger.Error().Err(err).Msg("Error unmarshaling broadcast message")
				continue
			}
			if msg.RoomID == "" || h.rooms[msg.RoomID] == nil {
				continue
			}
			for client := range h.rooms[msg.RoomID] {
				select {
				case client.send <- message:
				default:
					// Slow consumer: drop it rather than stall the room.
					close(client.send)
					delete(h.clients, client)
					delete(h.rooms[msg.RoomID], client)
				}
			}
		}
	}
}

// ReadPump drains (and discards) client frames until the connection
// closes. Subscribers have nothing to say -- commands travel over HTTP
// so the engine sees exactly one ordered command stream per encounter.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error().
					Err(err).
					Str("client_id", c.id).
					Str("encounter_id", c.encounterID).
					Msg("WebSocket read error")
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() { _ = c.conn.Close() }()

	for message := range c.send {
		_ = c.conn.WriteMessage(websocket.TextMessage, message)
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Broadcast sends a message to the hub's broadcast channel.
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// Shutdown stops the hub and closes all connections.
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)
	return nil
}
