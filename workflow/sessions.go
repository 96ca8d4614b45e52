package workflow

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
)

// SessionStore registers issued session ids so a signed token can be
// revoked before it expires.
type SessionStore interface {
	Create(ctx context.Context, sessionId string, username string, ttl time.Duration) error
	Lookup(ctx context.Context, sessionId string) (username string, ok bool, err error)
	Delete(ctx context.Context, sessionId string, username string) error
}

// RedisSessionStore keeps sessions in Redis:
//
//	Token:$sessionId -> username (expires with the token)
//	Tokens:$username -> set of session ids
type RedisSessionStore struct{}

func NewRedisSessionStore() *RedisSessionStore {
	return &RedisSessionStore{}
}

func (s *RedisSessionStore) Create(ctx context.Context, sessionId string, username string, ttl time.Duration) error {
	if err := config.AddRedisSet(utils.UserSessionsKey(username), sessionId); err != nil {
		return err
	}
	return config.SetRedisValue(utils.SessionKey(sessionId), username, ttl)
}

func (s *RedisSessionStore) Lookup(ctx context.Context, sessionId string) (string, bool, error) {
	return config.GetRedisValue(utils.SessionKey(sessionId))
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionId string, username string) error {
	if err := config.RemoveRedisKey(utils.SessionKey(sessionId)); err != nil {
		return err
	}
	return config.RemoveRedisSetMember(utils.UserSessionsKey(username), sessionId)
}

// MemorySessionStore is used when the service runs without Redis.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	username  string
	expiresAt time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: map[string]memorySession{},
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(ctx context.Context, sessionId string, username string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionId] = memorySession{username: username, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemorySessionStore) Lookup(ctx context.Context, sessionId string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionId]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(session.expiresAt) {
		delete(s.sessions, sessionId)
		return "", false, nil
	}
	return session.username, true, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sessionId string, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionId)
	return nil
}
