package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/member-registry/internal/domain"
)

// LocationRepository is the read side of the geographic directory plus the
// thin CRUD used by the REST layer. ChildrenOf returns rows in primary-key
// order; USSD menu numbers index into exactly that sequence.
type LocationRepository interface {
	ChildrenOf(ctx context.Context, level domain.LocationLevel, parentID int64) ([]domain.LocationOption, error)
	Provinces(ctx context.Context) ([]domain.LocationOption, error)

	CreateProvince(ctx context.Context, p *domain.Province) error
	CreateDistrict(ctx context.Context, d *domain.District) error
	CreateConstituency(ctx context.Context, c *domain.Constituency) error
	CreateWard(ctx context.Context, w *domain.Ward) error

	GetProvince(ctx context.Context, id int64) (*domain.Province, error)
	GetWard(ctx context.Context, id int64) (*domain.Ward, error)

	DeleteProvince(ctx context.Context, id int64) error
	DeleteDistrict(ctx context.Context, id int64) error
	DeleteConstituency(ctx context.Context, id int64) error
	DeleteWard(ctx context.Context, id int64) error
}

type locationRepository struct {
	pool *pgxpool.Pool
}

// NewLocationRepository returns a Postgres-backed implementation.
func NewLocationRepository(pool *pgxpool.Pool) LocationRepository {
	return &locationRepository{pool: pool}
}

func (r *locationRepository) ChildrenOf(ctx context.Context, level domain.LocationLevel, parentID int64) ([]domain.LocationOption, error) {
	var query string
	switch level {
	case domain.LevelProvince:
		return r.Provinces(ctx)
	case domain.LevelDistrict:
		query = `SELECT id, name FROM districts WHERE province_id=$1 ORDER BY id`
	case domain.LevelConstituency:
		query = `SELECT id, name FROM constituencies WHERE district_id=$1 ORDER BY id`
	case domain.LevelWard:
		query = `SELECT id, name FROM wards WHERE constituency_id=$1 ORDER BY id`
	default:
		return nil, fmt.Errorf("unknown location level %q", level)
	}

	rows, err := r.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOptions(rows)
}

func (r *locationRepository) Provinces(ctx context.Context) ([]domain.LocationOption, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM provinces ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOptions(rows)
}

func scanOptions(rows pgx.Rows) ([]domain.LocationOption, error) {
	options := make([]domain.LocationOption, 0)
	for rows.Next() {
		var opt domain.LocationOption
		if err := rows.Scan(&opt.ID, &opt.Name); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

func (r *locationRepository) CreateProvince(ctx context.Context, p *domain.Province) error {
	const query = `
        INSERT INTO provinces (name)
        VALUES ($1)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query, p.Name).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *locationRepository) CreateDistrict(ctx context.Context, d *domain.District) error {
	const query = `
        INSERT INTO districts (name, province_id)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query, d.Name, d.ProvinceID).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *locationRepository) CreateConstituency(ctx context.Context, c *domain.Constituency) error {
	const query = `
        INSERT INTO constituencies (name, district_id)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query, c.Name, c.DistrictID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *locationRepository) CreateWard(ctx context.Context, w *domain.Ward) error {
	const query = `
        INSERT INTO wards (name, constituency_id)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query, w.Name, w.ConstituencyID).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

func (r *locationRepository) GetProvince(ctx context.Context, id int64) (*domain.Province, error) {
	const query = `SELECT id, name, created_at, updated_at FROM provinces WHERE id=$1`

	var p domain.Province
	if err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *locationRepository) GetWard(ctx context.Context, id int64) (*domain.Ward, error) {
	const query = `SELECT id, name, constituency_id, created_at, updated_at FROM wards WHERE id=$1`

	var w domain.Ward
	if err := r.pool.QueryRow(ctx, query, id).Scan(&w.ID, &w.Name, &w.ConstituencyID, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *locationRepository) DeleteProvince(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, `DELETE FROM provinces WHERE id=$1`, id)
}

func (r *locationRepository) DeleteDistrict(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, `DELETE FROM districts WHERE id=$1`, id)
}

func (r *locationRepository) DeleteConstituency(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, `DELETE FROM constituencies WHERE id=$1`, id)
}

func (r *locationRepository) DeleteWard(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, `DELETE FROM wards WHERE id=$1`, id)
}

func (r *locationRepository) deleteByID(ctx context.Context, query string, id int64) error {
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
