package main

import (
	"log"
	"net/http"

	"github.com/samvad-chat/samvad/pkg/model"
	"github.com/samvad-chat/samvad/pkg/store"
)

// UsersHandler serves the full directory, sorted by display name, for the
// contact picker.
type UsersHandler struct {
	users store.UserStore
}

func NewUsersHandler(users store.UserStore) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		log.Printf("list users: %v", err)
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
