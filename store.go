package voxagent

import (
	"context"
	"sync"
)

// SessionStore provides read/write access to session state, routed by a key
// carried in the context. A nil result from Load means no session exists yet.
type SessionStore interface {
	Load(ctx context.Context) (*SessionState, error)
	Save(ctx context.Context, s *SessionState) error
	Remove(ctx context.Context) error
}

type sessionKeyContext struct{}

const defaultSessionKey = "default"

// WithSessionKey sets the routing key for session storage in the context.
// Concurrent calls carry distinct keys and never share state.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyContext{}, key)
}

// SessionKeyFromContext reads the routing key from the context.
func SessionKeyFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(sessionKeyContext{})
	if value == nil {
		return "", false
	}
	key, ok := value.(string)
	return key, ok
}

// SessionKeyOrDefault reads the routing key, falling back to "default".
func SessionKeyOrDefault(ctx context.Context) string {
	key, ok := SessionKeyFromContext(ctx)
	if ok && key != "" {
		return key
	}
	return defaultSessionKey
}

// MemorySessionStore is an in-memory SessionStore for tests and local usage.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionState
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*SessionState)}
}

func (m *MemorySessionStore) Load(ctx context.Context) (*SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[SessionKeyOrDefault(ctx)], nil
}

func (m *MemorySessionStore) Save(ctx context.Context, s *SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[SessionKeyOrDefault(ctx)] = s
	return nil
}

func (m *MemorySessionStore) Remove(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, SessionKeyOrDefault(ctx))
	return nil
}
