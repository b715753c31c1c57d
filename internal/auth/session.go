package auth

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultSessionTTL = 24 * time.Hour
	SessionCookie     = "session_id"
)

// Sessions maps opaque session ids to user ids.
type Sessions interface {
	Create(ctx context.Context, userID int64) (string, error)
	// Get returns 0 and a nil error when the session is unknown or expired.
	Get(ctx context.Context, sessionID string) (int64, error)
	Delete(ctx context.Context, sessionID string) error
}

// RedisSessions keeps sessions in Redis with a TTL.
type RedisSessions struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessions(rdb *redis.Client, ttl time.Duration) *RedisSessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessions{rdb: rdb, ttl: ttl}
}

func sessionKey(sid string) string { return "session:" + sid }

// Create stores a new session mapping sessionID -> userID.
func (s *RedisSessions) Create(ctx context.Context, userID int64) (string, error) {
	sid := uuid.New().String()
	err := s.rdb.Set(ctx, sessionKey(sid), strconv.FormatInt(userID, 10), s.ttl).Err()
	return sid, err
}

func (s *RedisSessions) Get(ctx context.Context, sessionID string) (int64, error) {
	val, err := s.rdb.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, nil
	}
	return id, nil
}

func (s *RedisSessions) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, sessionKey(sessionID)).Err()
}

// sweepInterval bounds how often Create scans for expired sessions.
const sweepInterval = time.Minute

// MemorySessions is an in-process session table for single-instance deployments.
// Expired sessions are dropped on lookup and by a periodic sweep in Create.
type MemorySessions struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
	sessions  map[string]memorySession
}

type memorySession struct {
	userID  int64
	expires time.Time
}

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessions{ttl: ttl, now: time.Now, sessions: make(map[string]memorySession)}
}

func (s *MemorySessions) Create(_ context.Context, userID int64) (string, error) {
	sid := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if !now.Before(s.nextSweep) {
		for id, sess := range s.sessions {
			if !now.Before(sess.expires) {
				delete(s.sessions, id)
			}
		}
		s.nextSweep = now.Add(sweepInterval)
	}
	s.sessions[sid] = memorySession{userID: userID, expires: now.Add(s.ttl)}
	return sid, nil
}

func (s *MemorySessions) Get(_ context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, nil
	}
	if !s.now().Before(sess.expires) {
		delete(s.sessions, sessionID)
		return 0, nil
	}
	return sess.userID, nil
}

func (s *MemorySessions) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

type ctxKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user id stored by WithUserID.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok && id != 0
}
