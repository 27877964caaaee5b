package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/samvad-chat/samvad/pkg/auth"
	"github.com/samvad-chat/samvad/pkg/model"
	"github.com/samvad-chat/samvad/pkg/store"
)

// AuthHandler fronts the user directory: existence check, login, signup.
type AuthHandler struct {
	users    store.UserStore
	tokens   *auth.Manager
	validate *validator.Validate
}

func NewAuthHandler(users store.UserStore, tokens *auth.Manager) *AuthHandler {
	return &AuthHandler{
		users:    users,
		tokens:   tokens,
		validate: validator.New(),
	}
}

type checkRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type loginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Phone    string `json:"phone" validate:"required,min=5"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=4"`
}

type authResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user,omitempty"`
	Token   string      `json:"token,omitempty"`
	Message string      `json:"message,omitempty"`
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Success: false, Message: err.Error()})
		return false
	}
	return true
}

// Check reports whether a phone number is already registered.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, err := h.users.FindByPhone(r.Context(), req.Phone)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"exists": true})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusOK, map[string]bool{"exists": false})
	default:
		log.Printf("check %s: %v", req.Phone, err)
		http.Error(w, "Failed to check user", http.StatusInternalServerError)
	}
}

// Login verifies the password and issues a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.users.FindByPhone(r.Context(), req.Phone)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, authResponse{Success: false, Message: "User not found"})
		return
	}
	if err != nil {
		log.Printf("login %s: %v", req.Phone, err)
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	if err := auth.CheckPassword(req.Password, user.Password); err != nil {
		writeJSON(w, http.StatusUnauthorized, authResponse{Success: false, Message: "Invalid password"})
		return
	}

	token, err := h.tokens.GenerateToken(user.Phone)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, User: user, Token: token})
}

var nonDigits = regexp.MustCompile(`\D`)

// Register creates a user. The avatar is synthesized from the phone digits.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Phone:     req.Phone,
		Name:      req.Name,
		Password:  hashed,
		Status:    "Available",
		Avatar:    "https://i.pravatar.cc/150?u=" + nonDigits.ReplaceAllString(req.Phone, ""),
		CreatedAt: time.Now().UTC(),
	}

	err = h.users.Create(r.Context(), user)
	if errors.Is(err, store.ErrDuplicate) {
		writeJSON(w, http.StatusBadRequest, authResponse{Success: false, Message: "User already exists"})
		return
	}
	if err != nil {
		log.Printf("register %s: %v", req.Phone, err)
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, User: user})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
