package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/samvad-chat/samvad/pkg/bus"
	"github.com/samvad-chat/samvad/pkg/chat"
	"github.com/samvad-chat/samvad/pkg/model"
	"github.com/samvad-chat/samvad/pkg/snowflake"
	"github.com/samvad-chat/samvad/pkg/store"
)

// ValidationError rejects a submission before anything is persisted or
// broadcast.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// Pipeline moves a message through created -> sent -> delivered: validate,
// persist, fan out, then advance the status after a fixed delay. The delay is
// a local simulation, not a recipient acknowledgment.
type Pipeline struct {
	messages store.MessageStore
	bus      bus.Bus
	ids      *snowflake.Node
	delay    time.Duration

	mu     sync.Mutex
	timers map[int64]*time.Timer
	closed bool
}

func NewPipeline(messages store.MessageStore, b bus.Bus, ids *snowflake.Node, delay time.Duration) *Pipeline {
	return &Pipeline{
		messages: messages,
		bus:      b,
		ids:      ids,
		delay:    delay,
		timers:   make(map[int64]*time.Timer),
	}
}

// Submit validates and persists a new message with status sent, fans it out
// to the chat room and to both participants' user channels, and schedules the
// delivered transition. Persistence failures are logged and swallowed: the
// sender sees no fan-out and nothing else.
func (p *Pipeline) Submit(ctx context.Context, sub model.SubmitPayload) (*model.Message, error) {
	if sub.Text == "" && sub.Image == "" {
		return nil, &ValidationError{Reason: "message needs text or an image"}
	}
	if sub.SenderID == "" {
		return nil, &ValidationError{Reason: "message needs a sender"}
	}
	chatID, err := chat.Parse(sub.ChatID)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	ts := sub.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	msg := &model.Message{
		ID:        p.ids.Generate(),
		ChatID:    sub.ChatID,
		SenderID:  sub.SenderID,
		Text:      sub.Text,
		Image:     sub.Image,
		Status:    model.StatusSent,
		Timestamp: ts,
	}

	if err := p.messages.Insert(ctx, msg); err != nil {
		log.Printf("persist message in %s failed: %v", sub.ChatID, err)
		return nil, fmt.Errorf("persist message: %w", err)
	}

	// Two audiences, same payload: every open chat screen for this
	// conversation, and both participants' chat lists.
	p.publish(ctx, bus.Frame{
		Scope:  bus.ScopeRoom,
		Target: msg.ChatID,
		Event:  model.NewEvent(model.EventMessage, msg),
	})
	recipient := chatID.Other(msg.SenderID)
	p.publish(ctx, bus.Frame{
		Scope:  bus.ScopeUser,
		Target: recipient,
		Event:  model.NewEvent(model.EventNewMessage, msg),
	})
	p.publish(ctx, bus.Frame{
		Scope:  bus.ScopeUser,
		Target: msg.SenderID,
		Event:  model.NewEvent(model.EventNewMessage, msg),
	})

	p.scheduleDelivery(msg.ChatID, msg.ID)
	return msg, nil
}

// scheduleDelivery arms the delivered transition for one message. The timer
// is keyed by message ID so it fires at most once, survives the sender
// disconnecting, and can be stopped wholesale at shutdown.
func (p *Pipeline) scheduleDelivery(chatID string, messageID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if _, armed := p.timers[messageID]; armed {
		return
	}
	p.timers[messageID] = time.AfterFunc(p.delay, func() {
		p.fireDelivery(chatID, messageID)
	})
}

func (p *Pipeline) fireDelivery(chatID string, messageID int64) {
	p.mu.Lock()
	_, armed := p.timers[messageID]
	delete(p.timers, messageID)
	p.mu.Unlock()
	if !armed {
		return
	}

	ctx := context.Background()
	applied, err := p.messages.UpdateStatus(ctx, chatID, messageID, model.StatusDelivered)
	if err != nil {
		log.Printf("mark %d delivered failed: %v", messageID, err)
		return
	}
	if !applied {
		// The message already moved past delivered (a read receipt beat the
		// timer); announcing delivered now would walk the status backwards.
		return
	}
	// The room may have zero live listeners by now; delivery is still
	// recorded and the broadcast is a silent no-op.
	p.publish(ctx, bus.Frame{
		Scope:  bus.ScopeRoom,
		Target: chatID,
		Event: model.NewEvent(model.EventStatus, model.StatusPayload{
			MessageID: messageID,
			Status:    model.StatusDelivered,
		}),
	})
}

// MarkRead advances every message in the chat not sent by the reader to read
// and announces each transition to the room.
func (p *Pipeline) MarkRead(ctx context.Context, read model.ReadPayload) error {
	if _, err := chat.Parse(read.ChatID); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	if read.UserID == "" {
		return &ValidationError{Reason: "read receipt needs a user"}
	}

	ids, err := p.messages.MarkRead(ctx, read.ChatID, read.UserID)
	if err != nil {
		log.Printf("mark read in %s failed: %v", read.ChatID, err)
		return fmt.Errorf("mark read: %w", err)
	}

	for _, id := range ids {
		p.publish(ctx, bus.Frame{
			Scope:  bus.ScopeRoom,
			Target: read.ChatID,
			Event: model.NewEvent(model.EventStatus, model.StatusPayload{
				MessageID: id,
				Status:    model.StatusRead,
			}),
		})
	}
	return nil
}

// Close stops every pending delivery timer. Messages already persisted keep
// status sent; nothing is rolled back.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
	}
}

func (p *Pipeline) publish(ctx context.Context, f bus.Frame) {
	if err := p.bus.Publish(ctx, f); err != nil {
		log.Printf("publish %s frame failed: %v", f.Event.Event, err)
	}
}
