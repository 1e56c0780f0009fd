/*
Package game contains the core logic for the guess-their-major chat game.

This file defines the Client struct, representing one active WebSocket
connection. It owns the read and write pumps, decodes inbound events, and
routes them to the player's current room. At most one room exists per
connection at a time.
*/
package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"humanorit/internal/pkg/logx"
	"humanorit/internal/pkg/randx"
)

const (
	// timeout for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed to wait for a Pong from the client.
	pongWait = 60 * time.Second

	// frequency of server Ping messages.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of an inbound frame.
	maxFrameSize = 4096

	// capacity of the outbound send queue.
	sendQueueSize = 64
)

// Client represents an active WebSocket connection and its game session.
type Client struct {
	// manager creates rooms on join.
	manager *Manager

	// underlying WebSocket connection.
	conn *websocket.Conn

	// id is the connection identifier.
	id string

	// room is the player's current session, nil before join. It is only
	// touched from the read-pump goroutine, so no locking is needed.
	room *Room

	// a buffered channel queueing messages waiting to be written out.
	send chan []byte

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection.
func NewClient(manager *Manager, conn *websocket.Conn, connectionID string) *Client {
	clientLogger := logx.Logger().With().
		Str("connection_id", connectionID).
		Logger()

	return &Client{
		manager: manager,
		conn:    conn,
		id:      connectionID,
		send:    make(chan []byte, sendQueueSize),
		logger:  clientLogger,
	}
}

// SendEvent marshals the event and queues it for delivery. A full queue
// drops the event rather than blocking the room loop.
func (c *Client) SendEvent(ev Event) error {
	messageBytes, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling event for client")
		return err
	}

	select {
	case c.send <- messageBytes:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping event")
		return fmt.Errorf("client send queue full")
	}
}

// ReadPump reads frames from the connection until it closes. It handles
// heartbeats and performs room teardown on disconnect.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		c.processInboundEvent(messageBytes)
	}
}

// cleanupOnDisconnect destroys the player's room and closes the connection.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	if c.room != nil {
		// Wait for the room loop to exit before closing the send queue.
		// The loop may still be emitting a reply in flight, and SendEvent
		// must never race a close of c.send.
		c.room.Stop()
		<-c.room.Done()
		c.room = nil
	}

	close(c.send)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundEvent decodes one inbound frame and dispatches it. Malformed
// input is dropped silently beyond a diagnostic log.
func (c *Client) processInboundEvent(messageBytes []byte) {
	var inbound struct {
		Type    EventType       `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	if err := json.Unmarshal(messageBytes, &inbound); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		return
	}

	switch inbound.Type {
	case TypeJoin:
		c.handleJoin()

	case TypeMessage:
		c.handleMessage(inbound.Payload)

	case TypeGuess:
		c.handleGuess(inbound.Payload)

	default:
		c.logger.Warn().Str("event_type", string(inbound.Type)).Msg("Client sent unsupported event type")
	}
}

// handleJoin creates a new room for the connection. A join while a room is
// still running is ignored; once the previous game resolved, a new one may
// start.
func (c *Client) handleJoin() {
	if c.room != nil {
		select {
		case <-c.room.Done():
			c.room = nil
		default:
			c.logger.Warn().Str("room_id", c.room.ID).Msg("Join ignored: room already active for connection")
			return
		}
	}

	room, err := c.manager.CreateRoom(c.id, c)
	if err != nil {
		c.logger.Error().Str("error", err.Error()).Msg("Failed to create room")
		return
	}

	c.room = room
}

// handleMessage routes a user message to the connection's room. Messages for
// unknown or stale rooms are dropped silently.
func (c *Client) handleMessage(payloadBytes json.RawMessage) {
	var payload MessagePayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid msg payload")
		return
	}

	if !randx.IsValidRoomCode(payload.Room) {
		c.logger.Warn().Str("room_id", payload.Room).Msg("Message dropped: malformed room id")
		return
	}

	if c.room == nil || payload.Room != c.room.ID {
		c.logger.Debug().Str("room_id", payload.Room).Msg("Message dropped: no such room for connection")
		return
	}

	c.room.SubmitMessage(payload.Text)
}

// handleGuess routes the final guess to the connection's room.
func (c *Client) handleGuess(payloadBytes json.RawMessage) {
	var payload GuessPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid guess payload")
		return
	}

	if !payload.Choice.IsValid() {
		c.logger.Warn().Str("choice", string(payload.Choice)).Msg("Guess dropped: invalid choice")
		return
	}

	if !randx.IsValidRoomCode(payload.Room) {
		c.logger.Warn().Str("room_id", payload.Room).Msg("Guess dropped: malformed room id")
		return
	}

	if c.room == nil || payload.Room != c.room.ID {
		c.logger.Debug().Str("room_id", payload.Room).Msg("Guess dropped: no such room for connection")
		return
	}

	c.room.SubmitGuess(payload.Choice)
}

// WritePump writes queued messages to the connection and keeps the heartbeat
// alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error().Err(err).Msg("Error writing message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}
