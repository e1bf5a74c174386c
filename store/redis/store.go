// Package redis implements session storage over Redis, keyed by the routing
// key carried in the context. It lets multiple engine processes share live
// sessions, e.g. behind a telephony load balancer.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	backend "github.com/redis/go-redis/v9"

	"github.com/itzneel05/voxagent"
)

// Store implements voxagent.SessionStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets an expiration on stored sessions. Zero means no expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client; tests use it with miniredis.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "voxagent:session:",
		ttl:    30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(ctx context.Context) string {
	return s.prefix + voxagent.SessionKeyOrDefault(ctx)
}

// Load returns the session for the context's routing key, or nil when none
// exists.
func (s *Store) Load(ctx context.Context) (*voxagent.SessionState, error) {
	data, err := s.client.Get(ctx, s.key(ctx)).Bytes()
	if err == backend.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session from redis: %w", err)
	}
	var session voxagent.SessionState
	if err := sonic.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Save persists the session, refreshing the TTL.
func (s *Store) Save(ctx context.Context, session *voxagent.SessionState) error {
	data, err := sonic.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(ctx), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session to redis: %w", err)
	}
	return nil
}

// Remove deletes the session for the context's routing key.
func (s *Store) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(ctx)).Err(); err != nil {
		return fmt.Errorf("remove session from redis: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error { return s.client.Close() }
