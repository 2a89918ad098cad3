package ussd

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/member-registry/internal/config"
	"github.com/spec-kit/member-registry/internal/domain"
	apperrors "github.com/spec-kit/member-registry/pkg/util/errorutil"
)

type fakeDirectory struct {
	children map[domain.LocationLevel]map[int64][]domain.LocationOption
	err      error
}

func (d *fakeDirectory) ChildrenOf(_ context.Context, level domain.LocationLevel, parentID int64) ([]domain.LocationOption, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.children[level][parentID], nil
}

type fakeMembers struct {
	byNRC     map[string]*domain.Member
	byVoters  map[string]*domain.Member
	byPhone   map[string]*domain.Member
	created   []*domain.Member
	createErr error
	lookupErr error
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{
		byNRC:    map[string]*domain.Member{},
		byVoters: map[string]*domain.Member{},
		byPhone:  map[string]*domain.Member{},
	}
}

func (m *fakeMembers) Create(_ context.Context, member *domain.Member) error {
	if m.createErr != nil {
		return m.createErr
	}
	member.ID = int64(len(m.created) + 1)
	m.created = append(m.created, member)
	return nil
}

func (m *fakeMembers) GetByNRC(_ context.Context, nrc string) (*domain.Member, error) {
	return m.lookup(m.byNRC, nrc)
}

func (m *fakeMembers) GetByVotersID(_ context.Context, votersID string) (*domain.Member, error) {
	return m.lookup(m.byVoters, votersID)
}

func (m *fakeMembers) GetByPhone(_ context.Context, phone string) (*domain.Member, error) {
	return m.lookup(m.byPhone, phone)
}

func (m *fakeMembers) lookup(index map[string]*domain.Member, key string) (*domain.Member, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	if member, ok := index[key]; ok {
		return member, nil
	}
	return nil, pgx.ErrNoRows
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{children: map[domain.LocationLevel]map[int64][]domain.LocationOption{
		domain.LevelProvince: {0: {
			{ID: 1, Name: "Lusaka"},
			{ID: 2, Name: "Copperbelt"},
		}},
		domain.LevelDistrict: {1: {
			{ID: 10, Name: "Lusaka District"},
		}},
		domain.LevelConstituency: {10: {
			{ID: 100, Name: "Munali"},
		}},
		domain.LevelWard: {100: {
			{ID: 1000, Name: "Chelstone"},
			{ID: 1001, Name: "Mtendere"},
		}},
	}}
}

func testConfig() config.USSDConfig {
	return config.USSDConfig{
		SessionTimeoutSec:   180,
		MaxInvalidAttempts:  3,
		MaxMenuOptions:      10,
		AllowReregistration: true,
		ResponseMaxChars:    160,
	}
}

func newTestEngine(t *testing.T, dir *fakeDirectory, members *fakeMembers, cfg config.USSDConfig) *Engine {
	t.Helper()
	return NewEngine(dir, members, cfg, zap.NewNop(), nil)
}

// drive feeds inputs one by one, carrying the returned session forward the
// way the gateway adapter does.
func drive(t *testing.T, e *Engine, sess *domain.Session, inputs ...string) Result {
	t.Helper()
	var result Result
	for _, input := range inputs {
		result = e.Handle(context.Background(), sess, input)
		sess = result.Session
	}
	return result
}

func startSession() *domain.Session {
	return domain.NewSession("sess-1", "+260971234567", time.Now())
}

func TestEngineHappyPath(t *testing.T) {
	members := newFakeMembers()
	e := newTestEngine(t, testDirectory(), members, testConfig())

	result := drive(t, e, startSession(),
		"",            // dial-in: terms prompt
		"1",           // accept terms
		"1",           // English
		"john",        // first name
		"banda",       // last name
		"123456/78/1", // NRC
		"123456",      // voter ID
		"01/01/1990",  // DOB
		"1",           // male
		"1",           // Lusaka
		"1",           // Lusaka District
		"1",           // Munali
		"1",           // Chelstone
		"1",           // confirm
	)

	require.Equal(t, OutcomeCompleted, result.Outcome)
	assert.False(t, result.Continue)
	assert.Equal(t, domain.StepComplete, result.Session.CurrentStep)
	assert.False(t, result.Session.Active)
	assert.Contains(t, result.Text, "Registration successful")

	require.Len(t, members.created, 1)
	member := members.created[0]
	assert.Equal(t, "John", member.FirstName)
	assert.Equal(t, "Banda", member.LastName)
	require.NotNil(t, member.NRC)
	assert.Equal(t, "123456/78/1", *member.NRC)
	assert.Equal(t, "123456", member.VotersID)
	assert.Equal(t, domain.GenderMale, member.Gender)
	assert.Equal(t, 1990, member.DateOfBirth.Year())
	assert.Equal(t, int64(1000), member.WardID)
	assert.Equal(t, "+260971234567", member.Phone)
	assert.Equal(t, domain.ChannelUSSD, member.Channel)
}

func TestEngineDoesNotMutateInputSession(t *testing.T) {
	e := newTestEngine(t, testDirectory(), newFakeMembers(), testConfig())

	sess := startSession()
	result := e.Handle(context.Background(), sess, "")

	assert.Equal(t, domain.StepStart, sess.CurrentStep)
	assert.Equal(t, domain.StepTerms, result.Session.CurrentStep)
}

func TestEngineInvalidNRCReprompts(t *testing.T) {
	e := newTestEngine(t, testDirectory(), newFakeMembers(), testConfig())

	result := drive(t, e, startSession(), "", "1", "1", "John", "Banda", "not-an-nrc")

	assert.Equal(t, OutcomeInvalid, result.Outcome)
	assert.True(t, result.Continue)
	assert.Equal(t, domain.StepNRC, result.Session.CurrentStep)
	assert.Equal(t, 1, result.Session.InvalidAttempts)
	assert.Contains(t, result.Text, "123456/78/1")
}

func TestEngineOutOfRangeMenuChoiceReprompts(t *testing.T) {
	e := newTestEngine(t, testDirectory(), newFakeMembers(), testConfig())

	// Two provinces exist; option 3 is out of range.
	result := drive(t, e, startSession(),
		"", "1", "1", "John", "Banda", "123456/78/1", "123456", "01/01/1990", "1", "3")

	assert.Equal(t, OutcomeInvalid, result.Outcome)
	assert.Equal(t, domain.StepProvince, result.Session.CurrentStep)
	assert.Contains(t, result.Text, "Invalid choice")
	assert.Contains(t, result.Text, "Lusaka")
	assert.Contains(t, result.Text, "Copperbelt")
}

func TestEngineInvalidAttemptsTerminate(t *testing.T) {
	e := newTestEngine(t, testDirectory(), newFakeMembers(), testConfig())

	result := drive(t, e, startSession(), "", "9", "9", "9")

	assert.Equal(t, OutcomeTerminated, result.Outcome)
	assert.False(t, result.Continue)
	assert.Equal(t, domain.StepInvalidTerminated, result.Session.CurrentStep)
	assert.False(t, result.Session.Active)
}

func TestEngineInvalidCounterResetsOnValidAnswer(t *testing.T) {
	e := newTestEngine(t, testDirectory(), newFakeMembers(), testConfig())

	result := drive(t, e, startSession(), "", "9", "9", "1")

	assert.Equal(t, OutcomeAdvanced, result.Outcome)
	assert.Equal(t, domain.StepLanguage, result.Session.CurrentStep)
	assert.Equal(t, 0, result.Session.InvalidAttempts)
}

func TestEngineCancel(t *testing.T) {
	e := newTestEngine(t, testDirectory(), newFakeMembers(), testConfig())

	result := drive(t, e, startSession(), "", "1", "1", "John", "0")

	assert.Equal(t, OutcomeCancelled, result.Outcome)
	assert.False(t, result.Continue)
	assert.Equal(t, domain.StepCancelled, result.Session.CurrentStep)
	assert.False(t, result.Session.Active)
}

func TestEngineDeclineTermsCancels(t *testing.T) {
	e := newTestEngine(t, testDirectory(), newFakeMembers(), testConfig())

	result := drive(t, e, startSession(), "", "2")

	assert.Equal(t, OutcomeCancelled, result.Outcome)
	assert.False(t, result.Continue)
	assert.Equal(t, domain.StepCancelled, result.Session.CurrentStep)
	assert.False(t, result.Session.Active)
	assert.Contains(t, result.Text, "cancelled")
}

func TestEngineEarlyVoterIDConflict(t *testing.T) {
	members := newFakeMembers()
	members.byVoters["123456"] = &domain.Member{ID: 7, VotersID: "123456"}
	e := newTestEngine(t, testDirectory(), members, testConfig())

	result := drive(t, e, startSession(),
		"", "1", "1", "John", "Banda", "123456/78/1", "123456")

	assert.Equal(t, OutcomeConflict, result.Outcome)
	assert.True(t, result.Continue)
	assert.Equal(t, domain.StepVotersID, result.Session.CurrentStep)
	assert.Contains(t, result.Text, "already registered")
}

func TestEngineCommitConflictRewindsToVoterID(t *testing.T) {
	members := newFakeMembers()
	members.createErr = apperrors.NewConflict("voter id already registered", nil)
	e := newTestEngine(t, testDirectory(), members, testConfig())

	result := drive(t, e, startSession(),
		"", "1", "1", "John", "Banda", "123456/78/1", "123456", "01/01/1990",
		"1", "1", "1", "1", "1", "1")

	assert.Equal(t, OutcomeConflict, result.Outcome)
	assert.True(t, result.Continue)
	assert.True(t, result.Session.Active)
	assert.Equal(t, domain.StepVotersID, result.Session.CurrentStep)
	_, kept := result.Session.Answers[domain.StepVotersID]
	assert.False(t, kept, "stale voter id answer should be cleared")
	// Everything else survives the rewind.
	assert.Equal(t, "John", result.Session.Answers[domain.StepFirstName])
	assert.Equal(t, int64(1000), result.Session.Choices[domain.StepWard])
}

func TestEngineDirectoryFailureLeavesStateUntouched(t *testing.T) {
	dir := testDirectory()
	e := newTestEngine(t, dir, newFakeMembers(), testConfig())

	sess := startSession()
	result := drive(t, e, sess,
		"", "1", "1", "John", "Banda", "123456/78/1", "123456", "01/01/1990")
	require.Equal(t, domain.StepGender, result.Session.CurrentStep)

	// The province menu render fails, so answering gender must not advance.
	dir.err = errors.New("connection refused")
	result = e.Handle(context.Background(), result.Session, "1")

	assert.Equal(t, OutcomeUnavailable, result.Outcome)
	assert.True(t, result.Continue)
	assert.Equal(t, domain.StepGender, result.Session.CurrentStep)
	assert.NotContains(t, result.Session.Answers, domain.StepGender)
	assert.Contains(t, result.Text, "temporarily unavailable")
}

func TestEngineBackendLookupFailureDoesNotAdvance(t *testing.T) {
	members := newFakeMembers()
	members.lookupErr = errors.New("connection refused")
	e := newTestEngine(t, testDirectory(), members, testConfig())

	result := drive(t, e, startSession(), "", "1", "1", "John", "Banda", "123456/78/1")

	assert.Equal(t, OutcomeUnavailable, result.Outcome)
	assert.Equal(t, domain.StepNRC, result.Session.CurrentStep)
}

func TestEngineBlocksReregistrationWhenDisabled(t *testing.T) {
	members := newFakeMembers()
	members.byPhone["+260971234567"] = &domain.Member{ID: 3, Phone: "+260971234567"}
	cfg := testConfig()
	cfg.AllowReregistration = false
	e := newTestEngine(t, testDirectory(), members, cfg)

	result := e.Handle(context.Background(), startSession(), "")

	assert.Equal(t, OutcomeBlocked, result.Outcome)
	assert.False(t, result.Continue)
	assert.False(t, result.Session.Active)
	assert.Contains(t, result.Text, "already registered")
}

func TestEngineMenuTruncatedToMaxOptions(t *testing.T) {
	dir := testDirectory()
	dir.children[domain.LevelProvince][0] = []domain.LocationOption{
		{ID: 1, Name: "One"}, {ID: 2, Name: "Two"}, {ID: 3, Name: "Three"},
	}
	cfg := testConfig()
	cfg.MaxMenuOptions = 2
	e := newTestEngine(t, dir, newFakeMembers(), cfg)

	result := drive(t, e, startSession(),
		"", "1", "1", "John", "Banda", "123456/78/1", "123456", "01/01/1990", "1")

	require.Equal(t, domain.StepProvince, result.Session.CurrentStep)
	assert.Contains(t, result.Text, "Two")
	assert.NotContains(t, result.Text, "Three")

	// Option 3 is now out of range even though the directory has it.
	result = e.Handle(context.Background(), result.Session, "3")
	assert.Equal(t, OutcomeInvalid, result.Outcome)
}

func TestEngineResponseClamped(t *testing.T) {
	cfg := testConfig()
	cfg.ResponseMaxChars = 40
	e := newTestEngine(t, testDirectory(), newFakeMembers(), cfg)

	result := drive(t, e, startSession(), "", "1")

	assert.LessOrEqual(t, len(result.Text), 40)
	assert.True(t, len(result.Text) < 40 || result.Text[len(result.Text)-3:] == "...")
}

func TestEngineClampTinyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.ResponseMaxChars = 2
	e := newTestEngine(t, testDirectory(), newFakeMembers(), cfg)

	result := drive(t, e, startSession(), "", "1")

	assert.LessOrEqual(t, len([]rune(result.Text)), 2)
}

func TestEngineClampRuneBoundary(t *testing.T) {
	e := newTestEngine(t, testDirectory(), newFakeMembers(), testConfig())
	e.cfg.ResponseMaxChars = 8

	clamped := e.clamp("Kwachá Kwachá Kwachá")

	assert.True(t, utf8.ValidString(clamped))
	assert.Equal(t, "Kwach...", clamped)
}

func TestEngineConfirmSummaryShowsAnswers(t *testing.T) {
	e := newTestEngine(t, testDirectory(), newFakeMembers(), config.USSDConfig{
		SessionTimeoutSec:   180,
		MaxInvalidAttempts:  3,
		MaxMenuOptions:      10,
		AllowReregistration: true,
		// No clamp so the full summary is visible.
	})

	result := drive(t, e, startSession(),
		"", "1", "1", "John", "Banda", "123456/78/1", "123456", "01/01/1990",
		"1", "1", "1", "1", "1")

	require.Equal(t, domain.StepConfirm, result.Session.CurrentStep)
	assert.Contains(t, result.Text, "John Banda")
	assert.Contains(t, result.Text, "123456/78/1")
	assert.Contains(t, result.Text, "Chelstone")
	assert.Contains(t, result.Text, "Lusaka")
}
