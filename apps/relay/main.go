package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/samvad-chat/samvad/pkg/auth"
	"github.com/samvad-chat/samvad/pkg/bus"
	"github.com/samvad-chat/samvad/pkg/config"
	"github.com/samvad-chat/samvad/pkg/db"
	"github.com/samvad-chat/samvad/pkg/presence"
	"github.com/samvad-chat/samvad/pkg/snowflake"
	"github.com/samvad-chat/samvad/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.RelayLogFile != "" {
		f, err := os.OpenFile(cfg.RelayLogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	// Store-connection failure at startup is the one fatal error.
	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()
	messages := store.NewScyllaMessageStore(session)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	tracker := presence.NewTracker(presence.NewRedisMirror(rdb))

	b := bus.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer b.Close()

	node, err := snowflake.NewNode(cfg.RelayNodeID)
	if err != nil {
		log.Fatalf("Failed to initialize snowflake node: %v", err)
	}

	pipeline := NewPipeline(messages, b, node, time.Duration(cfg.DeliveryDelayMillis)*time.Millisecond)
	hub := NewHub(tracker, b, pipeline, messages)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go hub.Run()
	go b.Run(ctx, hub.Deliver)

	tokens := auth.NewManager(cfg.JWTSecret)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, tokens, w, r)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.RelayPort),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		log.Println("shutting down relay")
		pipeline.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Relay Service Starting on :%d...", cfg.RelayPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
