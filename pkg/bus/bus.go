// Package bus carries broadcast frames from the point a relay instance
// publishes an event to the point every instance delivers it to its local
// connections. Kafka is the production transport; the in-memory bus serves
// tests and single-node development.
package bus

import (
	"context"

	"github.com/samvad-chat/samvad/pkg/model"
)

// Scope selects the audience of a frame.
type Scope string

const (
	// ScopeRoom targets every connection joined to the chat in Target.
	ScopeRoom Scope = "room"
	// ScopeUser targets every connection registered to the user in Target.
	ScopeUser Scope = "user"
	// ScopeAll targets every connection.
	ScopeAll Scope = "all"
)

// Frame is one broadcast: an event plus where it should land. ExcludeConn
// names a connection to skip, used to keep typing echoes away from their
// sender.
type Frame struct {
	Scope       Scope       `json:"scope"`
	Target      string      `json:"target,omitempty"`
	ExcludeConn string      `json:"excludeConn,omitempty"`
	Event       model.Event `json:"event"`
}

// Handler consumes one frame.
type Handler func(Frame)

// Bus is a publish/subscribe fan-out channel between relay instances.
type Bus interface {
	Publish(ctx context.Context, f Frame) error
	// Run delivers frames to h until ctx is cancelled.
	Run(ctx context.Context, h Handler)
	Close() error
}
