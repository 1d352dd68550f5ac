// Package protocol defines the websocket frames exchanged between the chat server and
// its clients. Every frame is a JSON object {"event": name, "data": payload}.
package protocol

import (
	"encoding/json"
	"time"
)

// Client to server.
const (
	EventJoinRoom    = "joinRoom"
	EventSendMessage = "sendMessage"
)

// Server to client.
const (
	EventReceiveMessage = "receiveMessage"
	EventSendAck        = "sendAck"
	EventJoined         = "joined"
	EventError          = "error"
)

// Frame is an inbound frame; Data is decoded once Event is known.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope is an outbound frame.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type JoinRoom struct {
	RoomID string `json:"roomId"`
}

type SendMessage struct {
	RequestID  string `json:"requestId,omitempty"`
	RoomID     string `json:"roomId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

// SendAck answers every sendMessage. Message is the stored copy when OK is true.
type SendAck struct {
	RequestID string   `json:"requestId,omitempty"`
	OK        bool     `json:"ok"`
	MessageID string   `json:"messageId,omitempty"`
	Message   *Message `json:"message,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type Joined struct {
	RoomID string `json:"roomId"`
}

type Error struct {
	// RoomID is set when the error answers a joinRoom.
	RoomID string `json:"roomId,omitempty"`
	Error  string `json:"error"`
}

// Message is a stored chat message as clients see it.
type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Message    string    `json:"message,omitempty"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func Encode(event string, data any) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data})
}
