package mysql

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"time"

	"review_feed/internal/adapters/observability"
	"review_feed/internal/domain"
)

// Store keeps raw image responses in MySQL, keyed by the SHA-256 of the URL.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// New wraps db. A zero ttl keeps rows forever.
func New(db *sql.DB, ttl time.Duration) *Store { return &Store{db: db, ttl: ttl} }

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createResponsesSQL)
	return err
}

func (s *Store) Get(ctx context.Context, url string) ([]byte, bool, error) {
	secs := int64(s.ttl / time.Second)
	var body []byte
	err := s.db.QueryRowContext(ctx, selectResponseSQL, hash(url), secs, secs).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		observability.ObserveCache("mysql", "miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	observability.ObserveCache("mysql", "hit")
	return body, true, nil
}

func (s *Store) Put(ctx context.Context, url string, body []byte) error {
	res, err := s.db.ExecContext(ctx, insertResponseSQL, hash(url), url, body)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		observability.ObserveCache("mysql", "set")
	}
	return nil
}

// Purge deletes rows past the TTL and reports how many went.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, purgeResponsesSQL, int64(s.ttl/time.Second))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func hash(url string) []byte {
	h := sha256.Sum256([]byte(url))
	return h[:]
}

var _ domain.ResponseStore = (*Store)(nil)
