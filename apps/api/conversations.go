package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/samvad-chat/samvad/pkg/auth"
	"github.com/samvad-chat/samvad/pkg/model"
	"github.com/samvad-chat/samvad/pkg/store"
)

// ConversationsHandler serves the authenticated user's chat list with unread
// counts.
func ConversationsHandler(conversations store.ConversationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(auth.UserKey).(*auth.Claims)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		list, err := conversations.List(r.Context(), claims.Phone)
		if err != nil {
			log.Printf("conversations for %s: %v", claims.Phone, err)
			http.Error(w, "Failed to list conversations", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []model.Conversation{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type readRequest struct {
	OtherUserID string `json:"otherUserId"`
}

// ReadHandler zeroes the authenticated user's unread counter against one
// peer, called when they open that conversation.
func ReadHandler(conversations store.ConversationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(auth.UserKey).(*auth.Claims)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req readRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OtherUserID == "" {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if err := conversations.ResetUnread(r.Context(), claims.Phone, req.OtherUserID); err != nil {
			log.Printf("reset unread %s/%s: %v", claims.Phone, req.OtherUserID, err)
			http.Error(w, "Failed to reset unread count", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
