package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types pushed to tournament rooms.
const (
	EventBracketUpdated      = "BRACKET_UPDATED"
	EventMatchCompleted      = "MATCH_COMPLETED"
	EventRoundStarted        = "ROUND_STARTED"
	EventTournamentCompleted = "TOURNAMENT_COMPLETED"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Message is the envelope sent to websocket subscribers of a tournament room.
type Message struct {
	Type         string      `json:"type"`
	TournamentID int         `json:"tournament_id"`
	Payload      interface{} `json:"payload,omitempty"`
}

// Hub fans bracket updates out to websocket clients grouped by tournament.
// Clients only listen; inbound frames are drained and ignored.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	rooms      map[int]map[*Client]struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[int]map[*Client]struct{}),
		logger:     logger,
	}
}

// Run processes client registration. Call once in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[c.tournamentID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[c.tournamentID] = room
			}
			room[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("websocket client joined room",
				slog.Int("tournament_id", c.tournamentID),
				slog.Int("room_size", len(room)))

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.tournamentID]; ok {
				if _, present := room[c]; present {
					delete(room, c)
					c.closeSend()
					if len(room) == 0 {
						delete(h.rooms, c.tournamentID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every client subscribed to the tournament.
// Slow clients are skipped rather than blocking the hub.
func (h *Hub) Broadcast(tournamentID int, eventType string, payload interface{}) {
	msg := Message{Type: eventType, TournamentID: tournamentID, Payload: payload}
	raw, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal websocket message",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[tournamentID] {
		c.trySend(raw)
	}
}

// Client is one websocket subscriber bound to a tournament room.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	tournamentID int

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, tournamentID int) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, 256),
		tournamentID: tournamentID,
	}
}

// Start registers the client and launches its pump goroutines.
func (c *Client) Start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *Client) trySend(raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- raw:
	default:
		// Send buffer full; the client will catch up from the next snapshot.
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error",
					slog.Int("tournament_id", c.tournamentID), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
