// Package events contains the message contracts exchanged with the browser
// over the dashboard WebSocket.
package events

import (
	"encoding/json"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Server to browser
	MessageTypeConnection    MessageType = "connection"
	MessageTypeDocumentState MessageType = "document:state"
	MessageTypeDocumentPatch MessageType = "document:patch"
	MessageTypeError         MessageType = "error"

	// Browser to server
	MessageTypeSliderChange MessageType = "slider:change"
	MessageTypeButtonClick  MessageType = "button:click"
	MessageTypeHeartbeat    MessageType = "heartbeat"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete outbound WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// NewMessage stamps a message with the current time
func NewMessage(msgType MessageType, data interface{}, traceID string) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	}
}

// Command is an inbound message from the browser
type Command struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	// ID is echoed back in error replies so the browser can match them
	ID string `json:"id,omitempty"`
}

// SliderChange is the data of a slider:change command
type SliderChange struct {
	Value *int `json:"value" validate:"required"`
}

// ConnectionData is sent to a client right after it connects
type ConnectionData struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	ClientID string `json:"client_id"`
}

// ErrorData is the payload of an error message
type ErrorData struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	CommandID string      `json:"command_id,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// Error codes sent in ErrorData
const (
	ErrCodeInvalidCommand     = "INVALID_COMMAND"
	ErrCodeUnsupportedCommand = "UNSUPPORTED_COMMAND"
	ErrCodeSliderOutOfRange   = "SLIDER_OUT_OF_RANGE"
	ErrCodeDocumentClosed     = "DOCUMENT_CLOSED"
	ErrCodeServerError        = "SERVER_ERROR"
)
