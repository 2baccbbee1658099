package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/orbitsim/internal/sim"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is checked by middleware before the upgrade
	},
}

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	sendBuffer   = 256
)

// Client represents a connected WebSocket client
type Client struct {
	id         string
	conn       *websocket.Conn
	simID      string
	canControl bool
	send       chan []byte
}

// Hub maintains the set of active clients, one room per simulation
type Hub struct {
	clients    map[string]*Client            // clientID -> Client
	rooms      map[string]map[string]*Client // simID -> clientID -> Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	manager    *sim.Manager
	mu         sync.RWMutex
}

// NewHub creates a new Hub bound to a simulation manager
func NewHub(manager *sim.Manager) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		manager:    manager,
	}
}

// Run processes registrations until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for _, c := range h.clients {
				c.conn.Close()
			}
			h.mu.Unlock()
			log.Println("[WS] Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			if _, exists := h.rooms[client.simID]; !exists {
				h.rooms[client.simID] = make(map[string]*Client)
			}
			h.rooms[client.simID][client.id] = client
			size := len(h.rooms[client.simID])
			h.mu.Unlock()
			log.Printf("[WS] Client %s joined %s (room_size=%d control=%v)", client.id, client.simID, size, client.canControl)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			if room, exists := h.rooms[client.simID]; exists {
				delete(room, client.id)
				if len(room) == 0 {
					delete(h.rooms, client.simID)
				}
			}
			h.mu.Unlock()
			log.Printf("[WS] Client %s left %s", client.id, client.simID)
		}
	}
}

// HasWatchers reports whether any client is watching a simulation
func (h *Hub) HasWatchers(simID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[simID]) > 0
}

// BroadcastToSim sends a message to every client watching a simulation
func (h *Hub) BroadcastToSim(simID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[simID] {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full; frames are superseded by the next one anyway
			log.Printf("[WS] Send buffer full for client %s in %s, dropping message", client.id, simID)
		}
	}
}

// Serve upgrades the request and attaches the client to a simulation room
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, simID string, canControl bool) {
	s, err := h.manager.Get(simID)
	if err != nil {
		http.Error(w, `{"error":"simulation not found"}`, http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		id:         uuid.NewString(),
		conn:       conn,
		simID:      simID,
		canControl: canControl,
		send:       make(chan []byte, sendBuffer),
	}
	// Queued before registering so no frame can overtake it.
	client.sendJSON(map[string]interface{}{
		"type": "snapshot",
		"data": s.Snapshot(true),
	})

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

// Message types
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error for client %s: %v", c.id, err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("invalid message format")
			continue
		}
		h.handleCommand(c, msg)
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed; best-effort close frame
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for client %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for client %s: %v", c.id, err)
				return
			}
		}
	}
}

func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] Dropped message for client %s (buffer full)", c.id)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
