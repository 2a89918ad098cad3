package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionLogEntry is one processed gateway request, kept for auditing.
type SessionLogEntry struct {
	ID            int64     `json:"id"`
	SessionID     string    `json:"session_id"`
	Msisdn        string    `json:"msisdn"`
	Step          string    `json:"step"`
	UserInput     string    `json:"user_input"`
	Succeeded     bool      `json:"succeeded"`
	StatusMessage string    `json:"status_message"`
	CreatedAt     time.Time `json:"created_at"`
}

// SessionLogRepository is a write-mostly audit trail of USSD traffic.
type SessionLogRepository interface {
	Append(ctx context.Context, entry *SessionLogEntry) error
	ListBySession(ctx context.Context, sessionID string) ([]SessionLogEntry, error)
}

type sessionLogRepository struct {
	pool *pgxpool.Pool
}

// NewSessionLogRepository returns a Postgres-backed implementation.
func NewSessionLogRepository(pool *pgxpool.Pool) SessionLogRepository {
	return &sessionLogRepository{pool: pool}
}

func (r *sessionLogRepository) Append(ctx context.Context, entry *SessionLogEntry) error {
	const query = `
        INSERT INTO ussd_logs (session_id, msisdn, step, user_input, succeeded, status_message)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		entry.SessionID,
		entry.Msisdn,
		entry.Step,
		entry.UserInput,
		entry.Succeeded,
		entry.StatusMessage,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *sessionLogRepository) ListBySession(ctx context.Context, sessionID string) ([]SessionLogEntry, error) {
	const query = `
        SELECT id, session_id, msisdn, step, user_input, succeeded, status_message, created_at
        FROM ussd_logs WHERE session_id=$1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]SessionLogEntry, 0)
	for rows.Next() {
		var e SessionLogEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Msisdn, &e.Step, &e.UserInput, &e.Succeeded, &e.StatusMessage, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
