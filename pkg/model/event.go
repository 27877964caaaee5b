package model

import "encoding/json"

// Event names carried over the socket, both directions.
const (
	EventRegister    = "register"
	EventJoin        = "join"
	EventMessage     = "message"
	EventTyping      = "typing"
	EventRead        = "read"
	EventChatHistory = "chat-history"
	EventNewMessage  = "new-message"
	EventStatus      = "message-status"
	EventOnlineUsers = "online-users"
)

// Event is the JSON envelope for every socket frame: a name plus an opaque
// payload decoded by the handler that owns the name.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEvent marshals payload into an envelope. Marshal errors are impossible
// for the payload types in this package, so they surface as a nil Data.
func NewEvent(name string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{Event: name}
	}
	return Event{Event: name, Data: data}
}

// RegisterPayload binds a connection to a logical user.
type RegisterPayload struct {
	UserID string `json:"userId"`
}

// JoinPayload enrolls a connection into a conversation room.
type JoinPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// SubmitPayload is an inbound chat message before persistence. Timestamp is
// optional; the server assigns one when it is zero.
type SubmitPayload struct {
	ChatID    string `json:"chatId"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text,omitempty"`
	Image     string `json:"image,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// TypingPayload relays a typing-state change to the rest of a room.
type TypingPayload struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// ReadPayload marks every message in the chat not sent by UserID as read.
type ReadPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// StatusPayload announces a delivery-state change for one message.
type StatusPayload struct {
	MessageID int64  `json:"messageId"`
	Status    Status `json:"status"`
}
