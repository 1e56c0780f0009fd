/*
Package game contains the core logic for the guess-their-major chat game:
room lifecycle, message orchestration, anti-reveal filtering, and the
WebSocket client adapter.

This file defines the typed event envelope exchanged with the client and the
payload structures for every inbound and outbound event.
*/
package game

import (
	"time"

	"humanorit/internal/pkg/randx"
)

// EventType discriminates the events on the wire.
type EventType string

// Inbound event types (client to server).
const (
	TypeJoin    EventType = "join"
	TypeMessage EventType = "msg"
	TypeGuess   EventType = "guess"
)

// Outbound event types (server to client). TypeMessage is used in both
// directions.
const (
	TypeStart  EventType = "start"
	TypeTyping EventType = "typing"
	TypeReveal EventType = "reveal"
)

// PeerName is the display identity of the AI side of the conversation.
const PeerName = "peer"

// Event is the envelope for every message crossing the WebSocket.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"ts"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent constructs an outbound Event with a fresh ID and the current
// timestamp in epoch milliseconds.
func NewEvent(eventType EventType, payload any) Event {
	return Event{
		ID:        randx.EventID(),
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// StartPayload announces a freshly created room and its absolute deadline.
type StartPayload struct {
	Room   string `json:"room"`
	EndsAt int64  `json:"endsAt"` // epoch ms
}

// TypingPayload toggles the "peer is typing" indicator.
type TypingPayload struct {
	From string `json:"from"`
	On   bool   `json:"on"`
}

// ChatPayload carries one peer reply to the player.
type ChatPayload struct {
	From string `json:"from"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"` // epoch ms
}

// RevealPayload resolves the game after a guess.
type RevealPayload struct {
	Truth   GuessChoice `json:"truth"`
	Correct bool        `json:"correct"`
}

// MessagePayload is the inbound user message.
type MessagePayload struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// GuessPayload is the inbound final guess.
type GuessPayload struct {
	Room   string      `json:"room"`
	Choice GuessChoice `json:"choice"`
}

// GuessChoice is the binary classification the player submits: the persona
// either is the target major or it is not.
type GuessChoice string

const (
	ChoiceTarget GuessChoice = "IT"
	ChoiceOther  GuessChoice = "NOT_IT"
)

// IsValid reports whether the choice is one of the two legal values.
func (g GuessChoice) IsValid() bool {
	return g == ChoiceTarget || g == ChoiceOther
}
