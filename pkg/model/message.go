package model

// Status is the delivery state of a message. Transitions only move forward:
// sent -> delivered -> read.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

var statusRank = map[Status]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// Valid reports whether s is one of the known delivery states.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanAdvanceTo reports whether moving from s to next respects the forward-only
// ordering of delivery states.
func (s Status) CanAdvanceTo(next Status) bool {
	a, ok1 := statusRank[s]
	b, ok2 := statusRank[next]
	return ok1 && ok2 && b > a
}

// Message is one chat message. Identity (ID, ChatID, SenderID, content,
// Timestamp) is immutable once persisted; only Status may change afterwards.
type Message struct {
	ID        int64  `json:"id"`
	ChatID    string `json:"chatId"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text,omitempty"`
	Image     string `json:"image,omitempty"`
	Status    Status `json:"status"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds, assigned by sender or server
}
