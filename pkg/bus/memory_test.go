package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-chat/samvad/pkg/model"
)

func TestMemoryLoopback(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Frame, 1)
	go m.Run(ctx, func(f Frame) { got <- f })

	sent := Frame{
		Scope:  ScopeRoom,
		Target: "a_b",
		Event:  model.NewEvent(model.EventTyping, model.TypingPayload{ChatID: "a_b", UserID: "a", IsTyping: true}),
	}
	require.NoError(t, m.Publish(ctx, sent))

	select {
	case f := <-got:
		assert.Equal(t, ScopeRoom, f.Scope)
		assert.Equal(t, "a_b", f.Target)
		assert.Equal(t, model.EventTyping, f.Event.Event)
	case <-time.After(time.Second):
		t.Fatal("frame never delivered")
	}
}

func TestMemoryPublishAfterCancel(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Buffered channel still accepts until full; a cancelled context only
	// fails once the buffer is exhausted.
	for i := 0; i < 256; i++ {
		require.NoError(t, m.Publish(context.Background(), Frame{}))
	}
	err := m.Publish(ctx, Frame{})
	assert.ErrorIs(t, err, context.Canceled)
}
