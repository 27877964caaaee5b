package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/samvad-chat/samvad/pkg/bus"
	"github.com/samvad-chat/samvad/pkg/chat"
	"github.com/samvad-chat/samvad/pkg/model"
	"github.com/samvad-chat/samvad/pkg/store"
)

// Projector tails the event bus and maintains the chat-list index: which
// conversations a user has, when each last moved, and unread counts.
type Projector struct {
	reader        *kafka.Reader
	conversations store.ConversationStore
}

func NewProjector(brokers []string, topic string, groupID string, conversations store.ConversationStore) *Projector {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Projector{reader: r, conversations: conversations}
}

// Consume reads frames until ctx is cancelled.
func (p *Projector) Consume(ctx context.Context) {
	for {
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Error reading message: %v. Retrying in 1s...", err)
			time.Sleep(1 * time.Second)
			continue
		}

		var f bus.Frame
		if err := json.Unmarshal(m.Value, &f); err != nil {
			log.Printf("Failed to unmarshal frame: %v", err)
			continue
		}

		if err := p.Apply(ctx, f); err != nil {
			log.Printf("Failed to apply frame: %v", err)
		}
	}
}

// Apply folds one frame into the index. Only freshly persisted messages
// matter; typing, rosters, and status changes are ephemeral here.
func (p *Projector) Apply(ctx context.Context, f bus.Frame) error {
	if f.Scope != bus.ScopeRoom || f.Event.Event != model.EventMessage {
		return nil
	}

	var msg model.Message
	if err := json.Unmarshal(f.Event.Data, &msg); err != nil {
		return err
	}

	chatID, err := chat.Parse(msg.ChatID)
	if err != nil {
		return err
	}

	userA, userB := chatID.Participants()
	if err := p.conversations.Touch(ctx, userA, userB, msg.Timestamp); err != nil {
		return err
	}
	if err := p.conversations.Touch(ctx, userB, userA, msg.Timestamp); err != nil {
		return err
	}

	// The peer of the sender gained an unread message.
	recipient := chatID.Other(msg.SenderID)
	return p.conversations.IncrementUnread(ctx, recipient, msg.SenderID)
}

func (p *Projector) Close() error {
	return p.reader.Close()
}
