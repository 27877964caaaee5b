package store

import (
	"context"
	"sort"

	"github.com/gocql/gocql"

	"github.com/samvad-chat/samvad/pkg/db"
	"github.com/samvad-chat/samvad/pkg/model"
)

// ScyllaUserStore implements UserStore over the users table.
type ScyllaUserStore struct {
	db *db.Session
}

func NewScyllaUserStore(session *db.Session) *ScyllaUserStore {
	return &ScyllaUserStore{db: session}
}

func (s *ScyllaUserStore) Create(ctx context.Context, u *model.User) error {
	// Lightweight transaction keeps phone unique without a read-then-write
	// race between two registrations.
	applied, err := s.db.Query(
		`INSERT INTO users (phone, name, avatar, status, password, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		u.Phone, u.Name, u.Avatar, u.Status, u.Password, u.CreatedAt,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return ErrDuplicate
	}
	return nil
}

func (s *ScyllaUserStore) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	var u model.User
	err := s.db.Query(
		`SELECT phone, name, avatar, status, password, created_at FROM users WHERE phone = ?`,
		phone,
	).WithContext(ctx).Scan(&u.Phone, &u.Name, &u.Avatar, &u.Status, &u.Password, &u.CreatedAt)
	if err == gocql.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *ScyllaUserStore) List(ctx context.Context) ([]model.User, error) {
	iter := s.db.Query(
		`SELECT phone, name, avatar, status, password, created_at FROM users`,
	).WithContext(ctx).Iter()

	var users []model.User
	var u model.User
	for iter.Scan(&u.Phone, &u.Name, &u.Avatar, &u.Status, &u.Password, &u.CreatedAt) {
		users = append(users, u)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	// Scylla cannot order a full-table scan; the directory is small enough
	// to sort here.
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

// ScyllaMessageStore implements MessageStore over the messages table,
// partitioned by chat_id and clustered by the time-sortable message ID.
type ScyllaMessageStore struct {
	db *db.Session
}

func NewScyllaMessageStore(session *db.Session) *ScyllaMessageStore {
	return &ScyllaMessageStore{db: session}
}

func (s *ScyllaMessageStore) Insert(ctx context.Context, m *model.Message) error {
	return s.db.Query(
		`INSERT INTO messages (chat_id, id, sender_id, text, image, status, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ChatID, m.ID, m.SenderID, m.Text, m.Image, string(m.Status), m.Timestamp,
	).WithContext(ctx).Exec()
}

func (s *ScyllaMessageStore) ListByChat(ctx context.Context, chatID string) ([]model.Message, error) {
	iter := s.db.Query(
		`SELECT chat_id, id, sender_id, text, image, status, timestamp
		 FROM messages WHERE chat_id = ?`,
		chatID,
	).WithContext(ctx).Iter()

	var messages []model.Message
	var m model.Message
	var status string
	for iter.Scan(&m.ChatID, &m.ID, &m.SenderID, &m.Text, &m.Image, &status, &m.Timestamp) {
		m.Status = model.Status(status)
		messages = append(messages, m)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	// Clustering order follows the message ID; client-supplied timestamps
	// may disagree with it, and history is promised in timestamp order.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
	return messages, nil
}

func (s *ScyllaMessageStore) UpdateStatus(ctx context.Context, chatID string, id int64, status model.Status) (bool, error) {
	var current string
	err := s.db.Query(
		`SELECT status FROM messages WHERE chat_id = ? AND id = ?`,
		chatID, id,
	).WithContext(ctx).Scan(&current)
	if err == gocql.ErrNotFound {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if !model.Status(current).CanAdvanceTo(status) {
		return false, nil
	}

	err = s.db.Query(
		`UPDATE messages SET status = ? WHERE chat_id = ? AND id = ?`,
		string(status), chatID, id,
	).WithContext(ctx).Exec()
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *ScyllaMessageStore) MarkRead(ctx context.Context, chatID, readerID string) ([]int64, error) {
	iter := s.db.Query(
		`SELECT id, sender_id, status FROM messages WHERE chat_id = ?`,
		chatID,
	).WithContext(ctx).Iter()

	var ids []int64
	var id int64
	var senderID, status string
	for iter.Scan(&id, &senderID, &status) {
		if senderID == readerID || model.Status(status) == model.StatusRead {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := s.UpdateStatus(ctx, chatID, id, model.StatusRead); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// ScyllaConversationStore implements ConversationStore over the
// user_conversations and conversation_counters tables.
type ScyllaConversationStore struct {
	db *db.Session
}

func NewScyllaConversationStore(session *db.Session) *ScyllaConversationStore {
	return &ScyllaConversationStore{db: session}
}

func (s *ScyllaConversationStore) Touch(ctx context.Context, userID, otherID string, ts int64) error {
	return s.db.Query(
		`INSERT INTO user_conversations (user_id, other_user_id, last_updated) VALUES (?, ?, ?)`,
		userID, otherID, ts,
	).WithContext(ctx).Exec()
}

func (s *ScyllaConversationStore) IncrementUnread(ctx context.Context, userID, otherID string) error {
	return s.db.Query(
		`UPDATE conversation_counters SET unread_count = unread_count + 1
		 WHERE user_id = ? AND other_user_id = ?`,
		userID, otherID,
	).WithContext(ctx).Exec()
}

func (s *ScyllaConversationStore) ResetUnread(ctx context.Context, userID, otherID string) error {
	// Deleting the row is how a Scylla counter resets.
	return s.db.Query(
		`DELETE FROM conversation_counters WHERE user_id = ? AND other_user_id = ?`,
		userID, otherID,
	).WithContext(ctx).Exec()
}

func (s *ScyllaConversationStore) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	iter := s.db.Query(
		`SELECT user_id, other_user_id, last_updated FROM user_conversations WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Iter()

	var conversations []model.Conversation
	var c model.Conversation
	for iter.Scan(&c.UserID, &c.OtherUserID, &c.LastUpdated) {
		conversations = append(conversations, c)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	for i := range conversations {
		var count int64
		err := s.db.Query(
			`SELECT unread_count FROM conversation_counters WHERE user_id = ? AND other_user_id = ?`,
			conversations[i].UserID, conversations[i].OtherUserID,
		).WithContext(ctx).Scan(&count)
		if err == nil {
			conversations[i].UnreadCount = count
		}
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastUpdated > conversations[j].LastUpdated
	})
	return conversations, nil
}
