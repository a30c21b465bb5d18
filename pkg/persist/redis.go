package persist

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key the snapshot is stored under.
const DefaultRedisKey = "sketchwire:canvas"

// RedisStore keeps the snapshot in Redis, for deployments where the
// relay process has no durable local disk.
type RedisStore struct {
	client *redis.Client
	key    string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisKey overrides the snapshot key.
func WithRedisKey(key string) RedisOption {
	return func(r *RedisStore) {
		r.key = key
	}
}

// NewRedisStore creates a Redis-backed snapshot store. The store owns
// the client and closes it in Close.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	r := &RedisStore{client: client, key: DefaultRedisKey}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save overwrites the snapshot key. Snapshots do not expire.
func (r *RedisStore) Save(ctx context.Context, data []byte) error {
	return r.client.Set(ctx, r.key, data, 0).Err()
}

// Load reads the snapshot key. A missing key is not an error.
func (r *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ SnapshotStore = (*RedisStore)(nil)
