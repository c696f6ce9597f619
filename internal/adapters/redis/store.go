package redisad

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"review_feed/internal/adapters/observability"
	"review_feed/internal/domain"
)

const keyPrefix = "img:"

// Store keeps raw image responses in Redis. The first body written for a
// URL wins until it expires.
type Store struct {
	c   *redis.Client
	ttl time.Duration
}

func New(addr, pass string, db int, ttl time.Duration) *Store {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), ttl)
}

func NewWithClient(c *redis.Client, ttl time.Duration) *Store {
	return &Store{c: c, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, url string) ([]byte, bool, error) {
	v, err := s.c.Get(ctx, keyPrefix+url).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCache("redis", "miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	observability.ObserveCache("redis", "hit")
	return v, true, nil
}

func (s *Store) Put(ctx context.Context, url string, body []byte) error {
	ok, err := s.c.SetNX(ctx, keyPrefix+url, body, s.ttl).Result()
	if err != nil {
		return err
	}
	if ok {
		observability.ObserveCache("redis", "set")
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.c.Ping(ctx).Err() }

func (s *Store) Close() error { return s.c.Close() }

var _ domain.ResponseStore = (*Store)(nil)
