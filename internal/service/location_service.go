package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/member-registry/internal/domain"
	"github.com/spec-kit/member-registry/internal/repository"
	apperrors "github.com/spec-kit/member-registry/pkg/util/errorutil"
)

// LocationService is the thin CRUD surface over the geographic directory.
type LocationService struct {
	locations repository.LocationRepository
}

// NewLocationService builds the service.
func NewLocationService(locations repository.LocationRepository) *LocationService {
	return &LocationService{locations: locations}
}

// Provinces lists all provinces in insertion order.
func (s *LocationService) Provinces(ctx context.Context) ([]domain.LocationOption, error) {
	return s.locations.Provinces(ctx)
}

// ChildrenOf lists the children of a location at the given level.
func (s *LocationService) ChildrenOf(ctx context.Context, level domain.LocationLevel, parentID int64) ([]domain.LocationOption, error) {
	return s.locations.ChildrenOf(ctx, level, parentID)
}

// CreateProvince adds a province.
func (s *LocationService) CreateProvince(ctx context.Context, name string) (*domain.Province, error) {
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	p := &domain.Province{Name: name}
	if err := s.locations.CreateProvince(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateDistrict adds a district under a province.
func (s *LocationService) CreateDistrict(ctx context.Context, name string, provinceID int64) (*domain.District, error) {
	if name == "" || provinceID == 0 {
		return nil, apperrors.NewValidationError("name and province_id are required", nil)
	}
	if _, err := s.locations.GetProvince(ctx, provinceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("province", map[string]any{"province_id": provinceID})
		}
		return nil, err
	}
	d := &domain.District{Name: name, ProvinceID: provinceID}
	if err := s.locations.CreateDistrict(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateConstituency adds a constituency under a district.
func (s *LocationService) CreateConstituency(ctx context.Context, name string, districtID int64) (*domain.Constituency, error) {
	if name == "" || districtID == 0 {
		return nil, apperrors.NewValidationError("name and district_id are required", nil)
	}
	c := &domain.Constituency{Name: name, DistrictID: districtID}
	if err := s.locations.CreateConstituency(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateWard adds a ward under a constituency.
func (s *LocationService) CreateWard(ctx context.Context, name string, constituencyID int64) (*domain.Ward, error) {
	if name == "" || constituencyID == 0 {
		return nil, apperrors.NewValidationError("name and constituency_id are required", nil)
	}
	w := &domain.Ward{Name: name, ConstituencyID: constituencyID}
	if err := s.locations.CreateWard(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Delete removes a location at the given level.
func (s *LocationService) Delete(ctx context.Context, level domain.LocationLevel, id int64) error {
	var err error
	switch level {
	case domain.LevelProvince:
		err = s.locations.DeleteProvince(ctx, id)
	case domain.LevelDistrict:
		err = s.locations.DeleteDistrict(ctx, id)
	case domain.LevelConstituency:
		err = s.locations.DeleteConstituency(ctx, id)
	case domain.LevelWard:
		err = s.locations.DeleteWard(ctx, id)
	default:
		return apperrors.NewValidationError("unknown location level", map[string]any{"level": level})
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound(string(level), map[string]any{"id": id})
		}
		return err
	}
	return nil
}
