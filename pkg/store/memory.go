package store

import (
	"context"
	"sort"
	"sync"

	"github.com/samvad-chat/samvad/pkg/model"
)

// MemoryUserStore is a map-backed UserStore for tests and local development.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]model.User)}
}

func (s *MemoryUserStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Phone]; ok {
		return ErrDuplicate
	}
	s.users[u.Phone] = *u
	return nil
}

func (s *MemoryUserStore) FindByPhone(_ context.Context, phone string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[phone]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

// MemoryMessageStore is a map-backed MessageStore.
type MemoryMessageStore struct {
	mu    sync.RWMutex
	chats map[string][]model.Message
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{chats: make(map[string][]model.Message)}
}

func (s *MemoryMessageStore) Insert(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[m.ChatID] = append(s.chats[m.ChatID], *m)
	return nil
}

func (s *MemoryMessageStore) ListByChat(_ context.Context, chatID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := make([]model.Message, len(s.chats[chatID]))
	copy(messages, s.chats[chatID])
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
	return messages, nil
}

func (s *MemoryMessageStore) UpdateStatus(_ context.Context, chatID string, id int64, status model.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chats[chatID] {
		if s.chats[chatID][i].ID == id {
			if !s.chats[chatID][i].Status.CanAdvanceTo(status) {
				return false, nil
			}
			s.chats[chatID][i].Status = status
			return true, nil
		}
	}
	return false, ErrNotFound
}

func (s *MemoryMessageStore) MarkRead(_ context.Context, chatID, readerID string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for i := range s.chats[chatID] {
		m := &s.chats[chatID][i]
		if m.SenderID == readerID || m.Status == model.StatusRead {
			continue
		}
		m.Status = model.StatusRead
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// MemoryConversationStore is a map-backed ConversationStore.
type MemoryConversationStore struct {
	mu      sync.Mutex
	touched map[string]map[string]int64 // userID -> otherID -> last updated
	unread  map[string]map[string]int64 // userID -> otherID -> count
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{
		touched: make(map[string]map[string]int64),
		unread:  make(map[string]map[string]int64),
	}
}

func (s *MemoryConversationStore) Touch(_ context.Context, userID, otherID string, ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.touched[userID] == nil {
		s.touched[userID] = make(map[string]int64)
	}
	s.touched[userID][otherID] = ts
	return nil
}

func (s *MemoryConversationStore) IncrementUnread(_ context.Context, userID, otherID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unread[userID] == nil {
		s.unread[userID] = make(map[string]int64)
	}
	s.unread[userID][otherID]++
	return nil
}

func (s *MemoryConversationStore) ResetUnread(_ context.Context, userID, otherID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unread[userID] != nil {
		delete(s.unread[userID], otherID)
	}
	return nil
}

func (s *MemoryConversationStore) List(_ context.Context, userID string) ([]model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var conversations []model.Conversation
	for otherID, ts := range s.touched[userID] {
		c := model.Conversation{UserID: userID, OtherUserID: otherID, LastUpdated: ts}
		if s.unread[userID] != nil {
			c.UnreadCount = s.unread[userID][otherID]
		}
		conversations = append(conversations, c)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastUpdated > conversations[j].LastUpdated
	})
	return conversations, nil
}
