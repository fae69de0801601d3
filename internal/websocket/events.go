package websocket

import "encoding/json"

// Inbound event names accepted from clients.
const (
	EventRegister    = "register"
	EventSendMessage = "send_message"
)

// Outbound event names pushed to clients.
const (
	EventMessageSent = "message_sent"
	EventError       = "error"
)

// ClientEvent is the framing for every inbound websocket message.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RegisterPayload is the data of a "register" event.
type RegisterPayload struct {
	UserID string `json:"user_id"`
}

// SendMessagePayload is the data of a "send_message" event. The sender id
// is validated against the connection's authenticated identity before the
// relay sees it.
type SendMessagePayload struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// ServerEvent is the framing for every outbound websocket message.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ErrorPayload is the data of an "error" event.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
