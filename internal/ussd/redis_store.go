package ussd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/member-registry/internal/domain"
)

const (
	sessionKeyPrefix = "ussd:session:"
	lockKeyPrefix    = "ussd:lock:"

	lockTTL       = 10 * time.Second
	lockRetryWait = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisStore is the production SessionStore. Sessions live under a
// per-phone key with a TTL matching the inactivity timeout; the per-phone
// lock is a SET NX key with a fencing token.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore builds a store with the given inactivity timeout.
func NewRedisStore(client *redis.Client, timeout time.Duration) *RedisStore {
	return &RedisStore{client: client, timeout: timeout}
}

func (s *RedisStore) FindActiveByPhone(ctx context.Context, phone string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+phone).Bytes()
	if err == redis.Nil {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if !sess.Active {
		return nil, ErrNoActiveSession
	}
	// The key TTL approximates expiry; the timestamp check is authoritative.
	if sess.Expired(time.Now(), s.timeout) {
		_ = s.client.Del(ctx, sessionKeyPrefix+phone).Err()
		return nil, ErrNoActiveSession
	}
	return &sess, nil
}

func (s *RedisStore) Create(ctx context.Context, sessionID, phone string) (*domain.Session, error) {
	sess := domain.NewSession(sessionID, phone, time.Now())
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, session *domain.Session) error {
	session.UpdatedAt = time.Now()
	if !session.Active {
		return s.client.Del(ctx, sessionKeyPrefix+session.Phone).Err()
	}
	return s.write(ctx, session)
}

func (s *RedisStore) write(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, sessionKeyPrefix+session.Phone, raw, s.timeout).Err()
}

// WithPhoneLock acquires the per-phone lock, retrying until the context is
// cancelled, and releases it only when the token still matches.
func (s *RedisStore) WithPhoneLock(ctx context.Context, phone string, fn func(ctx context.Context) error) error {
	key := lockKeyPrefix + phone
	token := uuid.NewString()

	for {
		ok, err := s.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return fmt.Errorf("acquire phone lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, s.client, []string{key}, token).Err()
	}()

	return fn(ctx)
}

func (s *RedisStore) ActiveSessions(ctx context.Context) ([]domain.Session, error) {
	sessions := make([]domain.Session, 0)

	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var sess domain.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			continue
		}
		if sess.Active && !sess.Expired(time.Now(), s.timeout) {
			sessions = append(sessions, sess)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// PurgeStale removes expired session keys left behind by clients that never
// came back. Redis TTLs already reclaim most of them.
func (s *RedisStore) PurgeStale(ctx context.Context, now time.Time) (int, error) {
	purged := 0

	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return purged, err
		}
		var sess domain.Session
		if err := json.Unmarshal(raw, &sess); err != nil || !sess.Active || sess.Expired(now, s.timeout) {
			if delErr := s.client.Del(ctx, iter.Val()).Err(); delErr == nil {
				purged++
			}
		}
	}
	return purged, iter.Err()
}
