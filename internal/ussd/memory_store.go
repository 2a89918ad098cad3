package ussd

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/member-registry/internal/domain"
)

// MemoryStore is an in-process SessionStore used in tests and when Redis is
// not configured. Per-phone mutexes serialize same-phone request handling.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	locks    map[string]*sync.Mutex
	timeout  time.Duration
	now      func() time.Time
}

// NewMemoryStore builds a store with the given inactivity timeout.
func NewMemoryStore(timeout time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		locks:    make(map[string]*sync.Mutex),
		timeout:  timeout,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) FindActiveByPhone(_ context.Context, phone string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[phone]
	if !ok || !sess.Active {
		return nil, ErrNoActiveSession
	}
	if sess.Expired(s.now(), s.timeout) {
		sess.Active = false
		return nil, ErrNoActiveSession
	}
	return cloneSession(sess), nil
}

func (s *MemoryStore) Create(_ context.Context, sessionID, phone string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := domain.NewSession(sessionID, phone, s.now())
	s.sessions[phone] = cloneSession(sess)
	return sess, nil
}

func (s *MemoryStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.UpdatedAt = s.now()
	s.sessions[session.Phone] = cloneSession(session)
	return nil
}

func (s *MemoryStore) WithPhoneLock(ctx context.Context, phone string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	lock, ok := s.locks[phone]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[phone] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

func (s *MemoryStore) ActiveSessions(_ context.Context) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	active := make([]domain.Session, 0)
	for _, sess := range s.sessions {
		if sess.Active && !sess.Expired(now, s.timeout) {
			active = append(active, *cloneSession(sess))
		}
	}
	return active, nil
}

func (s *MemoryStore) PurgeStale(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for phone, sess := range s.sessions {
		if !sess.Active || sess.Expired(now, s.timeout) {
			delete(s.sessions, phone)
			purged++
		}
	}
	return purged, nil
}

func cloneSession(sess *domain.Session) *domain.Session {
	return sess.Clone()
}
