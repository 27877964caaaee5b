// Package chat defines the conversation identifier shared by the relay,
// the REST gateway, and the projector.
package chat

import (
	"fmt"
	"strings"
)

// Delimiter separates the two participant identifiers inside a chat ID.
const Delimiter = "_"

// ID identifies a two-party conversation. The wire form is "A_B". No
// canonical ordering is enforced: "A_B" and "B_A" name distinct
// conversations, so callers must be consistent about construction.
type ID struct {
	a, b string
}

// New builds an ID from two participants, in the order given.
func New(userA, userB string) (ID, error) {
	if userA == "" || userB == "" {
		return ID{}, fmt.Errorf("chat: both participants required, got %q and %q", userA, userB)
	}
	if strings.Contains(userA, Delimiter) || strings.Contains(userB, Delimiter) {
		return ID{}, fmt.Errorf("chat: participant may not contain %q", Delimiter)
	}
	return ID{a: userA, b: userB}, nil
}

// Parse validates a wire-form chat ID. Splitting on the delimiter must yield
// exactly two non-empty tokens.
func Parse(s string) (ID, error) {
	parts := strings.Split(s, Delimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ID{}, fmt.Errorf("chat: malformed chat id %q", s)
	}
	return ID{a: parts[0], b: parts[1]}, nil
}

// String returns the wire form "A_B".
func (id ID) String() string {
	return id.a + Delimiter + id.b
}

// Participants returns both participants in construction order.
func (id ID) Participants() (string, string) {
	return id.a, id.b
}

// Has reports whether userID is one of the two participants.
func (id ID) Has(userID string) bool {
	return userID == id.a || userID == id.b
}

// Other derives the peer of senderID: the second participant when the sender
// is the first, otherwise the first. Callers must guarantee the sender is a
// participant; for an outside sender the result is the first participant.
func (id ID) Other(senderID string) string {
	if senderID == id.a {
		return id.b
	}
	return id.a
}
