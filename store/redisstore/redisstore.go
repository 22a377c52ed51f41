// Package redisstore implements batch.ValueFetcher against Redis, reusing
// the queue package's Externalizer-based wire encoding for stored values
// instead of inventing a second serialization, grounded on the teacher's
// go-redis client setup (queue/redis/queue.go).
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evalgo/rvpf/queue"
	"github.com/evalgo/rvpf/value"
)

// Config configures the Redis connection and key layout.
type Config struct {
	RedisURL  string
	KeyPrefix string
	TTL       time.Duration // 0 disables expiry
}

// Store is a best-effort point-value cache: a miss is reported via the
// (value.PointValue{}, false, nil) return, not an error, matching
// batch.ValueFetcher's "not found" contract.
type Store struct {
	client *redis.Client
	cfg    Config
}

// Dial connects to cfg.RedisURL and returns a ready Store.
func Dial(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rvpf:store:"
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return &Store{client: client, cfg: cfg}, nil
}

func (s *Store) key(point value.PointHandle, stamp time.Time) string {
	return fmt.Sprintf("%s%s:%d", s.cfg.KeyPrefix, point.PointUUID(), stamp.UnixNano())
}

// FetchPointValue looks up the cached value for point at exactly stamp.
func (s *Store) FetchPointValue(point value.PointHandle, stamp time.Time) (value.PointValue, bool, error) {
	ctx := context.Background()
	raw, err := s.client.Get(ctx, s.key(point, stamp)).Bytes()
	if err == redis.Nil {
		return value.PointValue{}, false, nil
	}
	if err != nil {
		return value.PointValue{}, false, fmt.Errorf("redisstore: get: %w", err)
	}
	wire, err := queue.DecodeNotice(raw)
	if err != nil {
		return value.PointValue{}, false, fmt.Errorf("redisstore: decode: %w", err)
	}
	ref := value.RefByUUID(point.PointUUID())
	return wire.Resolve(ref), true, nil
}

// Put caches v for later FetchPointValue lookups. v's PointRef must already
// be resolved, since the cache key is built from the point's UUID.
func (s *Store) Put(v value.PointValue) error {
	handle, ok := v.Point().Handle()
	if !ok {
		return fmt.Errorf("redisstore: put: point reference not resolved")
	}
	data, err := queue.EncodeNotice(v)
	if err != nil {
		return fmt.Errorf("redisstore: encode: %w", err)
	}
	ctx := context.Background()
	return s.client.Set(ctx, s.key(handle, v.Stamp()), data, s.cfg.TTL).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
