package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/samvad-chat/samvad/pkg/auth"
	"github.com/samvad-chat/samvad/pkg/config"
	"github.com/samvad-chat/samvad/pkg/db"
	"github.com/samvad-chat/samvad/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	tokens := auth.NewManager(cfg.JWTSecret)
	users := store.NewScyllaUserStore(session)
	messages := store.NewScyllaMessageStore(session)
	conversations := store.NewScyllaConversationStore(session)

	r := newRouter(tokens, users, messages, conversations, rdb)

	log.Printf("API Service Starting on :%d...", cfg.APIPort)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.APIPort), r); err != nil {
		log.Fatal(err)
	}
}

// newRouter wires every REST endpoint; split out so tests can mount it on
// httptest servers with in-memory stores.
func newRouter(tokens *auth.Manager, users store.UserStore, messages store.MessageStore, conversations store.ConversationStore, rdb *redis.Client) *mux.Router {
	authHandler := NewAuthHandler(users, tokens)

	r := mux.NewRouter()
	r.Use(CORSMiddleware)

	r.HandleFunc("/api/auth/check", authHandler.Check).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost, http.MethodOptions)

	r.Handle("/api/users", NewUsersHandler(users)).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/api/messages/{chatId}", NewMessagesHandler(messages)).Methods(http.MethodGet, http.MethodOptions)

	r.Handle("/api/conversations",
		AuthMiddleware(tokens, ConversationsHandler(conversations))).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/api/conversations/read",
		AuthMiddleware(tokens, ReadHandler(conversations))).Methods(http.MethodPost, http.MethodOptions)

	if rdb != nil {
		r.Handle("/api/online", NewOnlineHandler(rdb)).Methods(http.MethodGet, http.MethodOptions)
	}

	return r
}
