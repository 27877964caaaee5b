package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-chat/samvad/pkg/config"
	"github.com/samvad-chat/samvad/pkg/db"
	"github.com/samvad-chat/samvad/pkg/store"
)

const groupID = "projector-group"

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

	projector := NewProjector(cfg.KafkaBrokers, cfg.KafkaTopic, groupID, store.NewScyllaConversationStore(session))
	defer projector.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Projector Starting...")
	projector.Consume(ctx)
}
