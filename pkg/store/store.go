// Package store defines the durable contracts the relay core depends on:
// the user directory, the append-only message log, and the per-user
// conversation index. ScyllaDB implementations back the services; the
// in-memory implementations back tests and single-node development.
package store

import (
	"context"
	"errors"

	"github.com/samvad-chat/samvad/pkg/model"
)

var (
	// ErrNotFound means no record matches the lookup key.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate means a create collided with an existing key.
	ErrDuplicate = errors.New("store: duplicate key")
)

// UserStore is the user directory, keyed by phone number.
type UserStore interface {
	// Create inserts a new user. Returns ErrDuplicate if the phone is taken.
	Create(ctx context.Context, u *model.User) error
	// FindByPhone returns ErrNotFound for unknown phones.
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	// List returns all users sorted by display name.
	List(ctx context.Context) ([]model.User, error)
}

// MessageStore is the append-only message log. Records are immutable after
// insert except for the status column, which only moves forward.
type MessageStore interface {
	Insert(ctx context.Context, m *model.Message) error
	// ListByChat returns the chat's messages in ascending timestamp order.
	ListByChat(ctx context.Context, chatID string) ([]model.Message, error)
	// UpdateStatus advances one message's delivery state. A transition that
	// does not move forward is refused with applied == false, so a late
	// delivered cannot overwrite read.
	UpdateStatus(ctx context.Context, chatID string, id int64, status model.Status) (applied bool, err error)
	// MarkRead advances every message in the chat not sent by readerID to
	// read, returning the IDs it changed.
	MarkRead(ctx context.Context, chatID, readerID string) ([]int64, error)
}

// ConversationStore is the chat-list index maintained by the projector.
type ConversationStore interface {
	// Touch records that the conversation between userID and otherID moved
	// at ts.
	Touch(ctx context.Context, userID, otherID string, ts int64) error
	IncrementUnread(ctx context.Context, userID, otherID string) error
	ResetUnread(ctx context.Context, userID, otherID string) error
	// List returns userID's conversations with unread counts.
	List(ctx context.Context, userID string) ([]model.Conversation, error)
}
