package server

import (
	"encoding/json"
	"time"

	"github.com/lox/blackjacktables/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type JoinTableData struct {
	Table string `json:"table"`
	Login string `json:"login"`
}

type PlaceBetData struct {
	Amount int `json:"amount"`
}

type PlayerActionData struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"` // insurance stake or hand index
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TableJoinedData struct {
	Table   string `json:"table"`
	Login   string `json:"login"`
	Balance int    `json:"balance"`
	MinBet  int    `json:"minBet"`
	MaxBet  int    `json:"maxBet"`
}

type BettingOpenData struct {
	Table  string    `json:"table"`
	EndsAt time.Time `json:"endsAt"`
}

type BetAcceptedData struct {
	Login   string `json:"login"`
	Amount  int    `json:"amount"`
	Balance int    `json:"balance"`
}

// eventMessage wraps an engine event for the wire. The event type doubles
// as the message type so clients can switch on a single field.
func eventMessage(ev game.Event) (*Message, error) {
	return NewMessage(MessageType(ev.EventType()), ev)
}
