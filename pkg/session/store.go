package session

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/teslashibe/medi-voice/pkg/conversation"
)

// StoreFactory creates the conversation store for a session.
type StoreFactory func(ctx context.Context, sessionID string) (conversation.Store, error)

// MemoryStores keeps each session's conversation in process memory.
func MemoryStores() StoreFactory {
	return func(context.Context, string) (conversation.Store, error) {
		return conversation.NewMemoryStore(), nil
	}
}

// RedisStores keeps each session's conversation in Redis under a key that
// expires after ttl and is deleted when the session closes.
func RedisStores(client redis.Cmdable, ttl time.Duration) StoreFactory {
	return func(_ context.Context, sessionID string) (conversation.Store, error) {
		return conversation.NewRedisStore(client, sessionID, ttl), nil
	}
}
