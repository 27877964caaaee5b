package presence

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// OnlineSetKey is the redis set holding every online user ID.
const OnlineSetKey = "online:users"

// RedisMirror keeps the online set in redis.
type RedisMirror struct {
	client *redis.Client
}

func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client}
}

func (m *RedisMirror) Add(ctx context.Context, userID string) error {
	return m.client.SAdd(ctx, OnlineSetKey, userID).Err()
}

func (m *RedisMirror) Remove(ctx context.Context, userID string) error {
	return m.client.SRem(ctx, OnlineSetKey, userID).Err()
}
