package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-chat/samvad/pkg/bus"
	"github.com/samvad-chat/samvad/pkg/model"
	"github.com/samvad-chat/samvad/pkg/snowflake"
	"github.com/samvad-chat/samvad/pkg/store"
)

// frameSink collects everything published on a memory bus.
type frameSink struct {
	mu     sync.Mutex
	frames []bus.Frame
}

func (s *frameSink) collect(f bus.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
}

func (s *frameSink) snapshot() []bus.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bus.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *frameSink) waitLen(t *testing.T, n int) []bus.Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if frames := s.snapshot(); len(frames) >= n {
			return frames
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d frames, got %d", n, len(s.snapshot()))
	return nil
}

func startPipeline(t *testing.T, messages store.MessageStore, delay time.Duration) (*Pipeline, *frameSink) {
	t.Helper()

	b := bus.NewMemory()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	p := NewPipeline(messages, b, node, delay)
	sink := &frameSink{}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(p.Close)
	go b.Run(ctx, sink.collect)

	return p, sink
}

func TestSubmitValidation(t *testing.T) {
	messages := store.NewMemoryMessageStore()
	p, sink := startPipeline(t, messages, time.Hour)

	tests := []struct {
		name string
		sub  model.SubmitPayload
	}{
		{name: "no content", sub: model.SubmitPayload{ChatID: "a_b", SenderID: "a"}},
		{name: "no sender", sub: model.SubmitPayload{ChatID: "a_b", Text: "hi"}},
		{name: "malformed chat id", sub: model.SubmitPayload{ChatID: "solo", SenderID: "a", Text: "hi"}},
		{name: "empty chat id", sub: model.SubmitPayload{SenderID: "a", Text: "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Submit(context.Background(), tt.sub)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}

	// Rejected locally: nothing persisted, nothing broadcast.
	persisted, err := messages.ListByChat(context.Background(), "a_b")
	require.NoError(t, err)
	assert.Empty(t, persisted)
	assert.Empty(t, sink.snapshot())
}

func TestSubmitAssignsServerTimestamp(t *testing.T) {
	p, _ := startPipeline(t, store.NewMemoryMessageStore(), time.Hour)

	before := time.Now().UnixMilli()
	msg, err := p.Submit(context.Background(), model.SubmitPayload{ChatID: "a_b", SenderID: "a", Text: "hi"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, msg.Timestamp, before)
	assert.Equal(t, model.StatusSent, msg.Status)
}

func TestSubmitKeepsSenderTimestamp(t *testing.T) {
	p, _ := startPipeline(t, store.NewMemoryMessageStore(), time.Hour)

	msg, err := p.Submit(context.Background(), model.SubmitPayload{ChatID: "a_b", SenderID: "a", Text: "hi", Timestamp: 12345})
	require.NoError(t, err)
	assert.Equal(t, int64(12345), msg.Timestamp)
}

func TestSubmitFanout(t *testing.T) {
	p, sink := startPipeline(t, store.NewMemoryMessageStore(), time.Hour)

	msg, err := p.Submit(context.Background(), model.SubmitPayload{ChatID: "a_b", SenderID: "a", Text: "hi"})
	require.NoError(t, err)

	frames := sink.waitLen(t, 3)
	assert.Equal(t, bus.ScopeRoom, frames[0].Scope)
	assert.Equal(t, "a_b", frames[0].Target)
	assert.Equal(t, model.EventMessage, frames[0].Event.Event)

	// List refresh reaches the derived recipient and the sender.
	assert.Equal(t, bus.ScopeUser, frames[1].Scope)
	assert.Equal(t, "b", frames[1].Target)
	assert.Equal(t, model.EventNewMessage, frames[1].Event.Event)
	assert.Equal(t, bus.ScopeUser, frames[2].Scope)
	assert.Equal(t, "a", frames[2].Target)

	var broadcast model.Message
	require.NoError(t, json.Unmarshal(frames[0].Event.Data, &broadcast))
	assert.Equal(t, msg.ID, broadcast.ID)
}

func TestPersistenceFailureSwallowed(t *testing.T) {
	failing := &failingMessageStore{MessageStore: store.NewMemoryMessageStore()}
	p, sink := startPipeline(t, failing, 20*time.Millisecond)

	_, err := p.Submit(context.Background(), model.SubmitPayload{ChatID: "a_b", SenderID: "a", Text: "hi"})
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))

	// No fan-out, no delivery timer.
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, sink.snapshot())
	p.mu.Lock()
	assert.Empty(t, p.timers)
	p.mu.Unlock()
}

func TestDeliveryStatusIsMonotonic(t *testing.T) {
	messages := store.NewMemoryMessageStore()
	p, sink := startPipeline(t, messages, 20*time.Millisecond)

	msg, err := p.Submit(context.Background(), model.SubmitPayload{ChatID: "a_b", SenderID: "a", Text: "hi"})
	require.NoError(t, err)

	frames := sink.waitLen(t, 4)

	// Observed transitions form the prefix sent, delivered: the full message
	// goes out as sent before any status change, and the only status change
	// is delivered.
	var first model.Message
	require.Equal(t, model.EventMessage, frames[0].Event.Event)
	require.NoError(t, json.Unmarshal(frames[0].Event.Data, &first))
	assert.Equal(t, model.StatusSent, first.Status)

	last := frames[len(frames)-1]
	require.Equal(t, model.EventStatus, last.Event.Event)
	var status model.StatusPayload
	require.NoError(t, json.Unmarshal(last.Event.Data, &status))
	assert.Equal(t, msg.ID, status.MessageID)
	assert.Equal(t, model.StatusDelivered, status.Status)
	assert.True(t, model.StatusSent.CanAdvanceTo(status.Status))

	persisted, err := messages.ListByChat(context.Background(), "a_b")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, persisted[0].Status)
}

func TestDeliveryTimerFiresOnce(t *testing.T) {
	messages := store.NewMemoryMessageStore()
	p, sink := startPipeline(t, messages, 20*time.Millisecond)

	require.NoError(t, messages.Insert(context.Background(), &model.Message{ID: 7, ChatID: "a_b", SenderID: "a", Text: "hi", Status: model.StatusSent, Timestamp: 1}))

	// Double arming must not produce a second status broadcast.
	p.scheduleDelivery("a_b", 7)
	p.scheduleDelivery("a_b", 7)

	time.Sleep(100 * time.Millisecond)
	frames := sink.snapshot()
	require.Len(t, frames, 1)
	assert.Equal(t, model.EventStatus, frames[0].Event.Event)
}

func TestCloseCancelsPendingTimers(t *testing.T) {
	messages := store.NewMemoryMessageStore()
	p, sink := startPipeline(t, messages, 30*time.Millisecond)

	_, err := p.Submit(context.Background(), model.SubmitPayload{ChatID: "a_b", SenderID: "a", Text: "hi"})
	require.NoError(t, err)

	sink.waitLen(t, 3) // the sent fan-out
	p.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, sink.snapshot(), 3) // no delivered broadcast after Close

	persisted, err := messages.ListByChat(context.Background(), "a_b")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, persisted[0].Status)
}

func TestMarkReadValidation(t *testing.T) {
	p, sink := startPipeline(t, store.NewMemoryMessageStore(), time.Hour)

	err := p.MarkRead(context.Background(), model.ReadPayload{ChatID: "garbage", UserID: "a"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	err = p.MarkRead(context.Background(), model.ReadPayload{ChatID: "a_b"})
	assert.ErrorAs(t, err, &verr)

	assert.Empty(t, sink.snapshot())
}
