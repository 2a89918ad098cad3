package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/member-registry/internal/domain"
	"github.com/spec-kit/member-registry/internal/events"
	apperrors "github.com/spec-kit/member-registry/pkg/util/errorutil"
)

type memberRepoFake struct {
	members map[int64]*domain.Member
	nextID  int64
}

func newMemberRepoFake() *memberRepoFake {
	return &memberRepoFake{members: map[int64]*domain.Member{}, nextID: 1}
}

func (f *memberRepoFake) Create(_ context.Context, member *domain.Member) error {
	for _, m := range f.members {
		if m.VotersID == member.VotersID {
			return apperrors.NewConflict("voters id already registered", map[string]any{"field": "voters_id"})
		}
		if member.NRC != nil && m.NRC != nil && *m.NRC == *member.NRC {
			return apperrors.NewConflict("nrc already registered", map[string]any{"field": "nrc"})
		}
	}
	member.ID = f.nextID
	member.CreatedAt = time.Now()
	member.UpdatedAt = member.CreatedAt
	f.nextID++
	f.members[member.ID] = member
	return nil
}

func (f *memberRepoFake) Update(_ context.Context, member *domain.Member) error {
	if _, ok := f.members[member.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.members[member.ID] = member
	return nil
}

func (f *memberRepoFake) Delete(_ context.Context, id int64) error {
	if _, ok := f.members[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.members, id)
	return nil
}

func (f *memberRepoFake) GetByID(_ context.Context, id int64) (*domain.Member, error) {
	if m, ok := f.members[id]; ok {
		return m, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *memberRepoFake) GetByNRC(_ context.Context, nrc string) (*domain.Member, error) {
	for _, m := range f.members {
		if m.NRC != nil && *m.NRC == nrc {
			return m, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *memberRepoFake) GetByVotersID(_ context.Context, votersID string) (*domain.Member, error) {
	for _, m := range f.members {
		if m.VotersID == votersID {
			return m, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *memberRepoFake) GetByPhone(_ context.Context, phone string) (*domain.Member, error) {
	for _, m := range f.members {
		if m.Phone == phone {
			return m, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *memberRepoFake) ListByWard(_ context.Context, wardID int64) ([]domain.Member, error) {
	out := []domain.Member{}
	for _, m := range f.members {
		if m.WardID == wardID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *memberRepoFake) List(_ context.Context, offset, limit int) ([]domain.Member, error) {
	out := []domain.Member{}
	for _, m := range f.members {
		out = append(out, *m)
	}
	return out, nil
}

type locationRepoFake struct {
	wards map[int64]*domain.Ward
}

func newLocationRepoFake(wardIDs ...int64) *locationRepoFake {
	f := &locationRepoFake{wards: map[int64]*domain.Ward{}}
	for _, id := range wardIDs {
		f.wards[id] = &domain.Ward{ID: id, Name: "Ward"}
	}
	return f
}

func (f *locationRepoFake) ChildrenOf(context.Context, domain.LocationLevel, int64) ([]domain.LocationOption, error) {
	return nil, nil
}

func (f *locationRepoFake) Provinces(context.Context) ([]domain.LocationOption, error) {
	return nil, nil
}

func (f *locationRepoFake) CreateProvince(context.Context, *domain.Province) error         { return nil }
func (f *locationRepoFake) CreateDistrict(context.Context, *domain.District) error         { return nil }
func (f *locationRepoFake) CreateConstituency(context.Context, *domain.Constituency) error { return nil }
func (f *locationRepoFake) CreateWard(context.Context, *domain.Ward) error                 { return nil }

func (f *locationRepoFake) GetProvince(context.Context, int64) (*domain.Province, error) {
	return nil, pgx.ErrNoRows
}

func (f *locationRepoFake) GetWard(_ context.Context, id int64) (*domain.Ward, error) {
	if w, ok := f.wards[id]; ok {
		return w, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *locationRepoFake) DeleteProvince(context.Context, int64) error     { return nil }
func (f *locationRepoFake) DeleteDistrict(context.Context, int64) error     { return nil }
func (f *locationRepoFake) DeleteConstituency(context.Context, int64) error { return nil }
func (f *locationRepoFake) DeleteWard(context.Context, int64) error         { return nil }

func validInput() CreateInput {
	nrc := "123456/78/1"
	return CreateInput{
		FirstName:   "John",
		LastName:    "Banda",
		Gender:      domain.GenderMale,
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		NRC:         &nrc,
		VotersID:    "VT1234",
		Phone:       "+260971234567",
		WardID:      1000,
	}
}

func TestMemberServiceCreate(t *testing.T) {
	svc := NewMemberService(newMemberRepoFake(), newLocationRepoFake(1000), nil)

	member, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotZero(t, member.ID)
	assert.Equal(t, domain.ChannelWeb, member.Channel)
}

func TestMemberServiceCreateEmitsEvent(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	var got events.MemberRegisteredPayload
	dispatcher.Subscribe(events.EventMemberRegistered, func(_ context.Context, e events.Event) error {
		got = e.Payload.(events.MemberRegisteredPayload)
		return nil
	})

	svc := NewMemberService(newMemberRepoFake(), newLocationRepoFake(1000), dispatcher)
	member, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, member.ID, got.MemberID)
	assert.Equal(t, "John Banda", got.FullName)
}

func TestMemberServiceCreateMissingFields(t *testing.T) {
	svc := NewMemberService(newMemberRepoFake(), newLocationRepoFake(1000), nil)

	input := validInput()
	input.VotersID = ""
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestMemberServiceCreateUnknownWard(t *testing.T) {
	svc := NewMemberService(newMemberRepoFake(), newLocationRepoFake(), nil)

	_, err := svc.Create(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemberServiceCreateDuplicateVotersID(t *testing.T) {
	svc := NewMemberService(newMemberRepoFake(), newLocationRepoFake(1000), nil)

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	dup := validInput()
	other := "654321/87/1"
	dup.NRC = &other
	_, err = svc.Create(context.Background(), dup)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestMemberServiceCreateDuplicateNRC(t *testing.T) {
	svc := NewMemberService(newMemberRepoFake(), newLocationRepoFake(1000), nil)

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	dup := validInput()
	dup.VotersID = "VT9999"
	_, err = svc.Create(context.Background(), dup)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestMemberServiceCreateBulkContinuesPastFailures(t *testing.T) {
	svc := NewMemberService(newMemberRepoFake(), newLocationRepoFake(1000), nil)

	first := validInput()
	duplicate := validInput() // same voter ID as first
	third := validInput()
	third.VotersID = "VT5678"
	nrc := "222222/22/2"
	third.NRC = &nrc

	results := svc.CreateBulk(context.Background(), []CreateInput{first, duplicate, third})
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.True(t, apperrors.IsConflict(results[1].Err))
	assert.NoError(t, results[2].Err)
}

func TestMemberServiceUpdate(t *testing.T) {
	svc := NewMemberService(newMemberRepoFake(), newLocationRepoFake(1000), nil)

	member, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	changed := validInput()
	changed.FirstName = "Mary"
	updated, err := svc.Update(context.Background(), member.ID, changed)
	require.NoError(t, err)
	assert.Equal(t, "Mary", updated.FirstName)

	_, err = svc.Update(context.Background(), 999, validInput())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemberServiceGetAndDelete(t *testing.T) {
	svc := NewMemberService(newMemberRepoFake(), newLocationRepoFake(1000), nil)

	member, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.VotersID, got.VotersID)

	got, err = svc.GetByVotersID(context.Background(), member.VotersID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, got.ID)

	require.NoError(t, svc.Delete(context.Background(), member.ID))

	_, err = svc.Get(context.Background(), member.ID)
	assert.True(t, apperrors.IsNotFound(err))

	err = svc.Delete(context.Background(), member.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
