package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/member-registry/internal/domain"
	apperrors "github.com/spec-kit/member-registry/pkg/util/errorutil"
)

const pgUniqueViolation = "23505"

// MemberRepository defines persistence access for member records.
// Create surfaces duplicate voter-ID and NRC rows as Conflict errors.
type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) error
	Update(ctx context.Context, member *domain.Member) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Member, error)
	GetByNRC(ctx context.Context, nrc string) (*domain.Member, error)
	GetByVotersID(ctx context.Context, votersID string) (*domain.Member, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Member, error)
	ListByWard(ctx context.Context, wardID int64) ([]domain.Member, error)
	List(ctx context.Context, offset, limit int) ([]domain.Member, error)
}

type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository returns a Postgres-backed implementation.
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

const memberColumns = `id, first_name, last_name, gender, date_of_birth, nrc, voters_id, phone, ward_id, channel, created_at, updated_at`

func (r *memberRepository) Create(ctx context.Context, member *domain.Member) error {
	const query = `
        INSERT INTO members (first_name, last_name, gender, date_of_birth, nrc, voters_id, phone, ward_id, channel)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		member.FirstName,
		member.LastName,
		member.Gender,
		member.DateOfBirth,
		member.NRC,
		member.VotersID,
		member.Phone,
		member.WardID,
		member.Channel,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		return mapMemberWriteError(err)
	}
	return nil
}

func (r *memberRepository) Update(ctx context.Context, member *domain.Member) error {
	const query = `
        UPDATE members SET first_name=$1, last_name=$2, gender=$3, date_of_birth=$4, nrc=$5,
            voters_id=$6, phone=$7, ward_id=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		member.FirstName,
		member.LastName,
		member.Gender,
		member.DateOfBirth,
		member.NRC,
		member.VotersID,
		member.Phone,
		member.WardID,
		member.ID,
	)
	if err != nil {
		return mapMemberWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *memberRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *memberRepository) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE id=$1`, id)
}

func (r *memberRepository) GetByNRC(ctx context.Context, nrc string) (*domain.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE nrc=$1`, nrc)
}

func (r *memberRepository) GetByVotersID(ctx context.Context, votersID string) (*domain.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE voters_id=$1`, votersID)
}

func (r *memberRepository) GetByPhone(ctx context.Context, phone string) (*domain.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE phone=$1 ORDER BY id LIMIT 1`, phone)
}

func (r *memberRepository) getOne(ctx context.Context, query string, arg any) (*domain.Member, error) {
	var m domain.Member
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&m.ID,
		&m.FirstName,
		&m.LastName,
		&m.Gender,
		&m.DateOfBirth,
		&m.NRC,
		&m.VotersID,
		&m.Phone,
		&m.WardID,
		&m.Channel,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) ListByWard(ctx context.Context, wardID int64) ([]domain.Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM members WHERE ward_id=$1 ORDER BY id`, wardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *memberRepository) List(ctx context.Context, offset, limit int) ([]domain.Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM members ORDER BY id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

func scanMembers(rows pgx.Rows) ([]domain.Member, error) {
	members := make([]domain.Member, 0)
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(
			&m.ID,
			&m.FirstName,
			&m.LastName,
			&m.Gender,
			&m.DateOfBirth,
			&m.NRC,
			&m.VotersID,
			&m.Phone,
			&m.WardID,
			&m.Channel,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func mapMemberWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case "members_voters_id_key":
			return apperrors.NewConflict("voters id already registered", map[string]any{"field": "voters_id"})
		case "members_nrc_key":
			return apperrors.NewConflict("nrc already registered", map[string]any{"field": "nrc"})
		}
		return apperrors.NewConflict("duplicate member record", nil)
	}
	return err
}
