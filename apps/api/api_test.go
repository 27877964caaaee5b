package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-chat/samvad/pkg/auth"
	"github.com/samvad-chat/samvad/pkg/model"
	"github.com/samvad-chat/samvad/pkg/store"
)

type fixture struct {
	server        *httptest.Server
	tokens        *auth.Manager
	users         *store.MemoryUserStore
	messages      *store.MemoryMessageStore
	conversations *store.MemoryConversationStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tokens:        auth.NewManager("test-secret"),
		users:         store.NewMemoryUserStore(),
		messages:      store.NewMemoryMessageStore(),
		conversations: store.NewMemoryConversationStore(),
	}
	f.server = httptest.NewServer(newRouter(f.tokens, f.users, f.messages, f.conversations, nil))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) post(t *testing.T, path string, body any, token string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (f *fixture) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestRegisterThenDuplicate(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/api/auth/register", map[string]string{
		"phone": "+1555002", "name": "Asha", "password": "hunter2",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[authResponse](t, resp)
	assert.True(t, body.Success)
	require.NotNil(t, body.User)
	assert.Equal(t, "Asha", body.User.Name)
	assert.Equal(t, "Available", body.User.Status)
	assert.Equal(t, "https://i.pravatar.cc/150?u=1555002", body.User.Avatar)

	resp = f.post(t, "/api/auth/register", map[string]string{
		"phone": "+1555002", "name": "Imposter", "password": "hunter2",
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decodeBody[authResponse](t, resp)
	assert.False(t, body.Success)
	assert.Equal(t, "User already exists", body.Message)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/api/auth/register", map[string]string{
		"phone": "+1555003", "name": "NoPass",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginOutcomes(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/api/auth/register", map[string]string{
		"phone": "+1555000", "name": "Asha", "password": "hunter2",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	t.Run("unknown phone is 404", func(t *testing.T) {
		resp := f.post(t, "/api/auth/login", map[string]string{
			"phone": "+1555999", "password": "whatever",
		}, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decodeBody[authResponse](t, resp)
		assert.False(t, body.Success)
		assert.Equal(t, "User not found", body.Message)
	})

	t.Run("wrong password is 401", func(t *testing.T) {
		resp := f.post(t, "/api/auth/login", map[string]string{
			"phone": "+1555000", "password": "wrong",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decodeBody[authResponse](t, resp)
		assert.Equal(t, "Invalid password", body.Message)
	})

	t.Run("good login returns user and valid token", func(t *testing.T) {
		resp := f.post(t, "/api/auth/login", map[string]string{
			"phone": "+1555000", "password": "hunter2",
		}, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[authResponse](t, resp)
		assert.True(t, body.Success)
		require.NotNil(t, body.User)
		assert.Equal(t, "+1555000", body.User.Phone)

		claims, err := f.tokens.ValidateToken(body.Token)
		require.NoError(t, err)
		assert.Equal(t, "+1555000", claims.Phone)
	})
}

func TestCheckUser(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.users.Create(context.Background(), &model.User{Phone: "+1555000", Name: "Asha"}))

	resp := f.post(t, "/api/auth/check", map[string]string{"phone": "+1555000"}, "")
	assert.True(t, decodeBody[map[string]bool](t, resp)["exists"])

	resp = f.post(t, "/api/auth/check", map[string]string{"phone": "+1555999"}, "")
	assert.False(t, decodeBody[map[string]bool](t, resp)["exists"])
}

func TestListUsersSortedByName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, &model.User{Phone: "+1", Name: "Zoya"}))
	require.NoError(t, f.users.Create(ctx, &model.User{Phone: "+2", Name: "Arjun"}))

	resp := f.get(t, "/api/users", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decodeBody[[]model.User](t, resp)
	require.Len(t, users, 2)
	assert.Equal(t, "Arjun", users[0].Name)
	assert.Equal(t, "Zoya", users[1].Name)
}

func TestListMessagesAscending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.messages.Insert(ctx, &model.Message{ID: 2, ChatID: "+1_+2", SenderID: "+1", Text: "later", Status: model.StatusSent, Timestamp: 200}))
	require.NoError(t, f.messages.Insert(ctx, &model.Message{ID: 1, ChatID: "+1_+2", SenderID: "+2", Text: "earlier", Status: model.StatusRead, Timestamp: 100}))

	resp := f.get(t, "/api/messages/+1_+2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	messages := decodeBody[[]model.Message](t, resp)
	require.Len(t, messages, 2)
	assert.True(t, messages[0].Timestamp <= messages[1].Timestamp)
	assert.Equal(t, "earlier", messages[0].Text)
}

func TestListMessagesRejectsMalformedChatID(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/api/messages/garbage", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestConversationsRequireAuth(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/api/conversations", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/api/conversations", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestConversationListAndReadReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()
	require.NoError(t, f.conversations.Touch(ctx, "+1555000", "+1555001", now))
	require.NoError(t, f.conversations.IncrementUnread(ctx, "+1555000", "+1555001"))

	token, err := f.tokens.GenerateToken("+1555000")
	require.NoError(t, err)

	resp := f.get(t, "/api/conversations", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[[]model.Conversation](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "+1555001", list[0].OtherUserID)
	assert.Equal(t, int64(1), list[0].UnreadCount)

	resp = f.post(t, "/api/conversations/read", map[string]string{"otherUserId": "+1555001"}, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/api/conversations", token)
	list = decodeBody[[]model.Conversation](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, int64(0), list[0].UnreadCount)
}
