package ussd

import (
	"context"
	"time"

	"github.com/spec-kit/member-registry/internal/domain"
)

// SessionStore persists in-progress USSD sessions keyed by phone number.
// Implementations enforce the one-active-session-per-phone invariant and
// expire idle sessions lazily at lookup time.
type SessionStore interface {
	// FindActiveByPhone returns the live session for a phone, applying lazy
	// expiry: a session idle past the timeout is deactivated and
	// ErrNoActiveSession is returned.
	FindActiveByPhone(ctx context.Context, phone string) (*domain.Session, error)

	// Create stores a fresh session at the start of the flow.
	Create(ctx context.Context, sessionID, phone string) (*domain.Session, error)

	// Save persists the session state produced by the flow engine.
	Save(ctx context.Context, session *domain.Session) error

	// WithPhoneLock serializes the lookup-then-update cycle for one phone.
	// Concurrent requests for the same phone resolve against a single
	// consistent prior state.
	WithPhoneLock(ctx context.Context, phone string, fn func(ctx context.Context) error) error

	// ActiveSessions returns live sessions for introspection.
	ActiveSessions(ctx context.Context) ([]domain.Session, error)

	// PurgeStale removes sessions idle longer than the timeout. Housekeeping
	// only; expiry correctness never depends on it.
	PurgeStale(ctx context.Context, now time.Time) (int, error)
}
