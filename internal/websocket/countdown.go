// Package websocket streams the next-match countdown to browsers.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/fixtures"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	tickPeriod = time.Second
)

// Message types
const (
	MessageTypeCountdown = "countdown"
	MessageTypeKickoff   = "kickoff"
	MessageTypeNoMatch   = "no_match"
	MessageTypeError     = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

// Message is one frame sent to the browser
type Message struct {
	Type      string              `json:"type"`
	Match     *domain.Match       `json:"match,omitempty"`
	Countdown *fixtures.Countdown `json:"countdown,omitempty"`
	Error     string              `json:"error,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// MatchFetcher loads the next upcoming match, or nil when there is none
type MatchFetcher func(ctx context.Context) (*domain.Match, error)

// Countdown serves countdown streams. The match is fetched once per
// connection and only the remaining time is recomputed on each tick.
type Countdown struct {
	fetch       MatchFetcher
	logger      *slog.Logger
	now         func() time.Time
	connections atomic.Int64
}

// NewCountdown creates a countdown server
func NewCountdown(fetch MatchFetcher, logger *slog.Logger) *Countdown {
	return &Countdown{fetch: fetch, logger: logger, now: time.Now}
}

// Connections returns the number of open streams
func (c *Countdown) Connections() int64 {
	return c.connections.Load()
}

// ServeHTTP upgrades the request and streams until kickoff or disconnect
func (c *Countdown) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	id := uuid.New().String()
	c.connections.Add(1)
	defer c.connections.Add(-1)
	defer conn.Close()

	c.logger.Debug("new countdown connection", "client_id", id)

	match, err := c.fetch(r.Context())
	if err != nil {
		c.logger.Error("failed to load next match", "client_id", id, "error", err)
		c.closeWith(conn, Message{Type: MessageTypeError, Error: "Server error"})
		return
	}
	if match == nil {
		c.closeWith(conn, Message{Type: MessageTypeNoMatch})
		return
	}

	done := make(chan struct{})
	go readPump(conn, done)
	c.writePump(conn, *match, done)
}

// readPump discards client frames and signals when the peer goes away
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump sends a frame immediately and then once per tick
func (c *Countdown) writePump(conn *websocket.Conn, match domain.Match, done <-chan struct{}) {
	ticker := time.NewTicker(tickPeriod)
	pinger := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		pinger.Stop()
	}()

	if !c.tick(conn, match) {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !c.tick(conn, match) {
				return
			}
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// tick writes the current countdown and reports whether to keep going
func (c *Countdown) tick(conn *websocket.Conn, match domain.Match) bool {
	left := fixtures.CountdownTo(match.Date.Time, c.now())
	if left == nil {
		c.closeWith(conn, Message{Type: MessageTypeKickoff, Match: &match})
		return false
	}
	return c.write(conn, Message{Type: MessageTypeCountdown, Match: &match, Countdown: left}) == nil
}

func (c *Countdown) write(conn *websocket.Conn, msg Message) error {
	msg.Timestamp = c.now()
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Countdown) closeWith(conn *websocket.Conn, msg Message) {
	if err := c.write(conn, msg); err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
