// Package config loads service configuration from the environment.
package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is shared by the relay, the REST API, and the projector; each binary
// reads the subset it needs.
type Config struct {
	RelayPort int `envconfig:"RELAY_PORT" default:"8080"`
	APIPort   int `envconfig:"API_PORT" default:"8081"`

	// Snowflake node number; must differ between relay instances sharing a
	// store.
	RelayNodeID int64 `envconfig:"RELAY_NODE_ID" default:"1"`

	ScyllaHosts []string `envconfig:"SCYLLA_HOSTS" default:"localhost:9042"`
	Keyspace    string   `envconfig:"SCYLLA_KEYSPACE" default:"samvad"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:19092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"chat-events"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"dev-only-secret"`

	// Delay before a persisted message is marked delivered. A local
	// simulation, not a recipient acknowledgment.
	DeliveryDelayMillis int `envconfig:"DELIVERY_DELAY_MS" default:"500"`

	// When set, the relay appends its log there instead of stderr.
	RelayLogFile string `envconfig:"RELAY_LOG_FILE"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
