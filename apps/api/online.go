package main

import (
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/samvad-chat/samvad/pkg/presence"
)

// OnlineHandler answers "who is online right now" from the presence mirror,
// without touching any relay instance.
type OnlineHandler struct {
	redis *redis.Client
}

func NewOnlineHandler(client *redis.Client) *OnlineHandler {
	return &OnlineHandler{redis: client}
}

func (h *OnlineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	users, err := h.redis.SMembers(r.Context(), presence.OnlineSetKey).Result()
	if err != nil {
		log.Printf("fetch online users: %v", err)
		http.Error(w, "Failed to fetch online users", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
