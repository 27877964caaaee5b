// Creates the keyspace and tables every service expects. Run once before
// first start; safe to re-run.
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
	cluster.Keyspace = "system"
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatal(err)
	}

	err = session.Query(`CREATE KEYSPACE IF NOT EXISTS ` + cfg.Keyspace +
		` WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
	if err != nil {
		log.Fatalf("Failed to create keyspace: %v", err)
	}
	session.Close()

	cluster.Keyspace = cfg.Keyspace
	session, err = cluster.CreateSession()
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			phone text PRIMARY KEY,
			name text,
			avatar text,
			status text,
			password text,
			created_at timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			chat_id text,
			id bigint,
			sender_id text,
			text text,
			image text,
			status text,
			timestamp bigint,
			PRIMARY KEY (chat_id, id)
		) WITH CLUSTERING ORDER BY (id ASC)`,
		`CREATE TABLE IF NOT EXISTS user_conversations (
			user_id text,
			other_user_id text,
			last_updated bigint,
			PRIMARY KEY (user_id, other_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_counters (
			user_id text,
			other_user_id text,
			unread_count counter,
			PRIMARY KEY (user_id, other_user_id)
		)`,
	}

	for _, stmt := range statements {
		if err := session.Query(stmt).Exec(); err != nil {
			log.Fatalf("Failed to run %q: %v", stmt[:40], err)
		}
	}

	log.Printf("Schema ready in keyspace %s", cfg.Keyspace)
}
