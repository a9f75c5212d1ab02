package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisKeyPrefix namespaces every key written by RedisStore.
const RedisKeyPrefix = "medivoice:session:"

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// RedisStore keeps one session's log in a Redis list so several server
// replicas can serve the same session. The key expires after ttl of
// inactivity and is deleted when the session closes; nothing outlives the
// session.
type RedisStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewRedisStore creates a store for sessionID. The client is shared and is
// not closed by the store.
func NewRedisStore(client redis.Cmdable, sessionID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		key:    SessionKey(sessionID),
		ttl:    ttl,
	}
}

// SessionKey returns the Redis list key for a session.
func SessionKey(sessionID string) string {
	return RedisKeyPrefix + sessionID + ":messages"
}

// Key returns the Redis key used by this store.
func (s *RedisStore) Key() string {
	return s.key
}

// Append implements Store.
func (s *RedisStore) Append(ctx context.Context, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrClosed
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append to %s: %w", s.key, err)
	}
	return nil
}

// History implements Store.
func (s *RedisStore) History(ctx context.Context) ([]Message, error) {
	return s.lrange(ctx, 0, -1)
}

// Recent implements Store.
func (s *RedisStore) Recent(ctx context.Context, k int) ([]Message, error) {
	if k <= 0 {
		return []Message{}, nil
	}
	return s.lrange(ctx, int64(-k), -1)
}

// Len implements Store.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("length of %s: %w", s.key, err)
	}
	return int(n), nil
}

// Close implements Store. The session's key is deleted.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) lrange(ctx context.Context, start, stop int64) ([]Message, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	raw, err := s.client.LRange(ctx, s.key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("decode message in %s: %w", s.key, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Verify RedisStore implements Store at compile time.
var _ Store = (*RedisStore)(nil)
