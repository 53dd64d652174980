package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Subscription protocol message types.
const (
	MsgSubscribe             = "subscribe"
	MsgPing                  = "ping"
	MsgPong                  = "pong"
	MsgConnectionEstablished = "connection_established"
	MsgSubscriptionConfirmed = "subscription_confirmed"
	MsgSentimentUpdate       = "sentiment_update"
)

// ClientMessage is a parsed client→server frame. Unknown types are kept as-is
// so the caller can ignore them without failing the connection.
type ClientMessage struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols,omitempty"`
}

// ParseClientMessage strictly parses a client frame. A frame without a type
// field is malformed; a frame with an unrecognized type is not.
func ParseClientMessage(b []byte) (*ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse client message: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("client message missing type")
	}
	return &m, nil
}

// Known reports whether the message type is part of the protocol.
func (m *ClientMessage) Known() bool {
	return m.Type == MsgSubscribe || m.Type == MsgPing
}

// ServerMessage is a server→client frame.
type ServerMessage struct {
	Type      string       `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Message   string       `json:"message,omitempty"`
	Symbols   []string     `json:"symbols,omitempty"`
	Results   []ScoredItem `json:"results,omitempty"`
	Signals   []Signal     `json:"signals,omitempty"`
}

// Update is the fan-out payload: a scored batch plus any signals it produced.
type Update struct {
	Results []ScoredItem
	Signals []Signal
}
