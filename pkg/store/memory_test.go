package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-chat/samvad/pkg/model"
)

func TestMemoryUserStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	require.NoError(t, s.Create(ctx, &model.User{Phone: "+1555000", Name: "Zoya"}))
	require.NoError(t, s.Create(ctx, &model.User{Phone: "+1555001", Name: "Arjun"}))

	err := s.Create(ctx, &model.User{Phone: "+1555000", Name: "Imposter"})
	assert.ErrorIs(t, err, ErrDuplicate)

	u, err := s.FindByPhone(ctx, "+1555000")
	require.NoError(t, err)
	assert.Equal(t, "Zoya", u.Name)

	_, err = s.FindByPhone(ctx, "+1555999")
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Arjun", users[0].Name) // sorted by name
}

func TestMemoryMessageStoreOrderAndStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMessageStore()

	// Inserted out of timestamp order on purpose.
	require.NoError(t, s.Insert(ctx, &model.Message{ID: 2, ChatID: "a_b", SenderID: "a", Text: "second", Status: model.StatusSent, Timestamp: 200}))
	require.NoError(t, s.Insert(ctx, &model.Message{ID: 1, ChatID: "a_b", SenderID: "b", Text: "first", Status: model.StatusSent, Timestamp: 100}))

	messages, err := s.ListByChat(ctx, "a_b")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Text)
	assert.Equal(t, "second", messages[1].Text)

	applied, err := s.UpdateStatus(ctx, "a_b", 1, model.StatusDelivered)
	require.NoError(t, err)
	assert.True(t, applied)
	messages, _ = s.ListByChat(ctx, "a_b")
	assert.Equal(t, model.StatusDelivered, messages[0].Status)

	_, err = s.UpdateStatus(ctx, "a_b", 99, model.StatusDelivered)
	assert.ErrorIs(t, err, ErrNotFound)

	// Status never walks backwards: delivered after read is refused.
	_, err = s.UpdateStatus(ctx, "a_b", 1, model.StatusRead)
	require.NoError(t, err)
	applied, err = s.UpdateStatus(ctx, "a_b", 1, model.StatusDelivered)
	require.NoError(t, err)
	assert.False(t, applied)
	messages, _ = s.ListByChat(ctx, "a_b")
	assert.Equal(t, model.StatusRead, messages[0].Status)
}

func TestMemoryMessageStoreMarkRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMessageStore()

	require.NoError(t, s.Insert(ctx, &model.Message{ID: 1, ChatID: "a_b", SenderID: "a", Status: model.StatusDelivered, Timestamp: 1}))
	require.NoError(t, s.Insert(ctx, &model.Message{ID: 2, ChatID: "a_b", SenderID: "b", Status: model.StatusSent, Timestamp: 2}))

	// b reads the chat: only a's message advances.
	ids, err := s.MarkRead(ctx, "a_b", "b")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	// Second read is a no-op.
	ids, err = s.MarkRead(ctx, "a_b", "b")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryConversationStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryConversationStore()

	require.NoError(t, s.Touch(ctx, "a", "b", 100))
	require.NoError(t, s.Touch(ctx, "a", "c", 200))
	require.NoError(t, s.IncrementUnread(ctx, "a", "b"))
	require.NoError(t, s.IncrementUnread(ctx, "a", "b"))

	conversations, err := s.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, "c", conversations[0].OtherUserID) // newest first
	assert.Equal(t, int64(2), conversations[1].UnreadCount)

	require.NoError(t, s.ResetUnread(ctx, "a", "b"))
	conversations, _ = s.List(ctx, "a")
	assert.Equal(t, int64(0), conversations[1].UnreadCount)
}
