package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/samvad-chat/samvad/pkg/chat"
	"github.com/samvad-chat/samvad/pkg/model"
	"github.com/samvad-chat/samvad/pkg/store"
)

// MessagesHandler serves a conversation's history in ascending timestamp
// order.
type MessagesHandler struct {
	messages store.MessageStore
}

func NewMessagesHandler(messages store.MessageStore) *MessagesHandler {
	return &MessagesHandler{messages: messages}
}

func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatId"]
	if _, err := chat.Parse(chatID); err != nil {
		http.Error(w, "Invalid chat id", http.StatusBadRequest)
		return
	}

	messages, err := h.messages.ListByChat(r.Context(), chatID)
	if err != nil {
		log.Printf("history for %s: %v", chatID, err)
		http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}
