package model

import "time"

// User is a directory record keyed by phone number. The relay core treats
// these as read-only; only the REST gateway creates them.
type User struct {
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	Status    string    `json:"status,omitempty"`
	Password  string    `json:"-"` // bcrypt hash, never serialized
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is one row of a user's chat list: who they talked to, when the
// conversation last moved, and how many messages they have not read yet.
type Conversation struct {
	UserID      string `json:"userId"`
	OtherUserID string `json:"otherUserId"`
	LastUpdated int64  `json:"lastUpdated"` // unix milliseconds
	UnreadCount int64  `json:"unreadCount"`
}
