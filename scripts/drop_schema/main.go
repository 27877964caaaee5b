// Drops every table so a dev environment can start clean.
package main

import (
	"log"

	"github.com/gocql/gocql"

	"github.com/samvad-chat/samvad/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	for _, table := range []string{"users", "messages", "user_conversations", "conversation_counters"} {
		if err := session.Query(`DROP TABLE IF EXISTS ` + table).Exec(); err != nil {
			log.Fatalf("Failed to drop %s: %v", table, err)
		}
		log.Printf("Dropped %s", table)
	}
}
