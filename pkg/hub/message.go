// Package hub provides a thread-safe websocket broadcast hub
// using the channel-based fan-out pattern.
package hub

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
)

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (e.g., JPEG camera frames)
	BinaryMessage
)

// Message represents a message to be broadcast to clients
type Message struct {
	Type MessageType
	Data []byte
}

// frameType returns the websocket opcode the message is written with
func (m Message) frameType() int {
	if m.Type == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// JSON encodes v as a JSON message
func JSON(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
