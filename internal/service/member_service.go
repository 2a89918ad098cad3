package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/member-registry/internal/domain"
	"github.com/spec-kit/member-registry/internal/events"
	"github.com/spec-kit/member-registry/internal/repository"
	apperrors "github.com/spec-kit/member-registry/pkg/util/errorutil"
)

// MemberService coordinates member intake for the REST layer and final USSD
// commits.
type MemberService struct {
	members    repository.MemberRepository
	locations  repository.LocationRepository
	dispatcher events.Dispatcher
}

// NewMemberService builds the service.
func NewMemberService(members repository.MemberRepository, locations repository.LocationRepository, dispatcher events.Dispatcher) *MemberService {
	return &MemberService{members: members, locations: locations, dispatcher: dispatcher}
}

// CreateInput carries validated member fields.
type CreateInput struct {
	FirstName   string
	LastName    string
	Gender      domain.Gender
	DateOfBirth time.Time
	NRC         *string
	VotersID    string
	Phone       string
	WardID      int64
	Channel     domain.RegistrationChannel
}

// Create validates referential integrity and uniqueness, then persists the
// member. Duplicate voter IDs and NRCs surface as Conflict.
func (s *MemberService) Create(ctx context.Context, input CreateInput) (*domain.Member, error) {
	if input.FirstName == "" || input.LastName == "" || input.VotersID == "" {
		return nil, apperrors.NewValidationError("first_name, last_name and voters_id are required", nil)
	}

	if _, err := s.locations.GetWard(ctx, input.WardID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ward", map[string]any{"ward_id": input.WardID})
		}
		return nil, err
	}

	if _, err := s.members.GetByVotersID(ctx, input.VotersID); err == nil {
		return nil, apperrors.NewConflict("voters id already registered", map[string]any{"field": "voters_id"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if input.NRC != nil {
		if _, err := s.members.GetByNRC(ctx, *input.NRC); err == nil {
			return nil, apperrors.NewConflict("nrc already registered", map[string]any{"field": "nrc"})
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	channel := input.Channel
	if channel == "" {
		channel = domain.ChannelWeb
	}

	member := &domain.Member{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Gender:      input.Gender,
		DateOfBirth: input.DateOfBirth,
		NRC:         input.NRC,
		VotersID:    input.VotersID,
		Phone:       input.Phone,
		WardID:      input.WardID,
		Channel:     channel,
	}

	// The unique indexes remain authoritative under concurrent inserts.
	if err := s.members.Create(ctx, member); err != nil {
		return nil, err
	}

	s.publishRegistered(ctx, member)
	return member, nil
}

// BulkResult reports the outcome of one row in a bulk submission.
type BulkResult struct {
	Index  int
	Member *domain.Member
	Err    error
}

// CreateBulk processes a bulk form submission row by row. A failing row does
// not abort the remainder.
func (s *MemberService) CreateBulk(ctx context.Context, inputs []CreateInput) []BulkResult {
	results := make([]BulkResult, 0, len(inputs))
	for i, input := range inputs {
		member, err := s.Create(ctx, input)
		results = append(results, BulkResult{Index: i, Member: member, Err: err})
	}
	return results
}

// Update rewrites a member record. Uniqueness violations surface as
// Conflict from the repository.
func (s *MemberService) Update(ctx context.Context, id int64, input CreateInput) (*domain.Member, error) {
	if input.FirstName == "" || input.LastName == "" || input.VotersID == "" {
		return nil, apperrors.NewValidationError("first_name, last_name and voters_id are required", nil)
	}

	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("member", map[string]any{"id": id})
		}
		return nil, err
	}

	if _, err := s.locations.GetWard(ctx, input.WardID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ward", map[string]any{"ward_id": input.WardID})
		}
		return nil, err
	}

	member.FirstName = input.FirstName
	member.LastName = input.LastName
	member.Gender = input.Gender
	member.DateOfBirth = input.DateOfBirth
	member.NRC = input.NRC
	member.VotersID = input.VotersID
	member.Phone = input.Phone
	member.WardID = input.WardID

	if err := s.members.Update(ctx, member); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("member", map[string]any{"id": id})
		}
		return nil, err
	}
	return member, nil
}

// Get returns a member by id.
func (s *MemberService) Get(ctx context.Context, id int64) (*domain.Member, error) {
	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("member", map[string]any{"id": id})
		}
		return nil, err
	}
	return member, nil
}

// GetByNRC returns a member by NRC.
func (s *MemberService) GetByNRC(ctx context.Context, nrc string) (*domain.Member, error) {
	member, err := s.members.GetByNRC(ctx, nrc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("member", map[string]any{"nrc": nrc})
		}
		return nil, err
	}
	return member, nil
}

// GetByVotersID returns a member by voter ID.
func (s *MemberService) GetByVotersID(ctx context.Context, votersID string) (*domain.Member, error) {
	member, err := s.members.GetByVotersID(ctx, votersID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("member", map[string]any{"voters_id": votersID})
		}
		return nil, err
	}
	return member, nil
}

// List pages through members.
func (s *MemberService) List(ctx context.Context, offset, limit int) ([]domain.Member, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.members.List(ctx, offset, limit)
}

// ListByWard returns members of one ward.
func (s *MemberService) ListByWard(ctx context.Context, wardID int64) ([]domain.Member, error) {
	return s.members.ListByWard(ctx, wardID)
}

// Delete removes a member record.
func (s *MemberService) Delete(ctx context.Context, id int64) error {
	if err := s.members.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("member", map[string]any{"id": id})
		}
		return err
	}
	return nil
}

func (s *MemberService) publishRegistered(ctx context.Context, member *domain.Member) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventMemberRegistered,
		Timestamp: time.Now(),
		Payload: events.MemberRegisteredPayload{
			MemberID: member.ID,
			FullName: member.FullName(),
			Phone:    member.Phone,
			WardID:   member.WardID,
			Channel:  member.Channel,
		},
	})
}
