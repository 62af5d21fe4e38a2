package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore tracks revoked sessions until their tokens would expire anyway.
type SessionStore interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

type redisSessionStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisSessionStore returns a SessionStore keeping one key per revoked
// session, expiring together with the token.
func NewRedisSessionStore(client redis.Cmdable, prefix string) SessionStore {
	return &redisSessionStore{client: client, prefix: prefix, now: time.Now}
}

func (s *redisSessionStore) key(sessionID string) string {
	return s.prefix + "session:revoked:" + sessionID
}

func (s *redisSessionStore) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.key(sessionID), "1", ttl).Err()
}

func (s *redisSessionStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	err := s.client.Get(ctx, s.key(sessionID)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

type memorySessionStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemorySessionStore keeps revocations in process memory. Used when no
// Redis address is configured; revocations do not survive a restart and are
// not shared between instances.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{revoked: map[string]time.Time{}, now: time.Now}
}

func (s *memorySessionStore) Revoke(_ context.Context, sessionID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	if until.After(now) {
		s.revoked[sessionID] = until
	}
	return nil
}

func (s *memorySessionStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[sessionID]
	return ok && exp.After(s.now()), nil
}
