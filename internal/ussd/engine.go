package ussd

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/member-registry/internal/config"
	"github.com/spec-kit/member-registry/internal/domain"
	apperrors "github.com/spec-kit/member-registry/pkg/util/errorutil"
)

// Directory is the read-only location lookup the engine queries for cascade
// menus. Option order is authoritative for menu numbering.
type Directory interface {
	ChildrenOf(ctx context.Context, level domain.LocationLevel, parentID int64) ([]domain.LocationOption, error)
}

// MemberStore is the persistence surface the engine commits to.
type MemberStore interface {
	Create(ctx context.Context, member *domain.Member) error
	GetByNRC(ctx context.Context, nrc string) (*domain.Member, error)
	GetByVotersID(ctx context.Context, votersID string) (*domain.Member, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Member, error)
}

// RegisteredFunc observes completed registrations.
type RegisteredFunc func(ctx context.Context, member *domain.Member)

// Outcome classifies how one request was handled, for logs and metrics.
type Outcome string

const (
	OutcomeAdvanced    Outcome = "advanced"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeConflict    Outcome = "conflict"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeCompleted   Outcome = "completed"
	OutcomeTerminated  Outcome = "terminated"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeBlocked     Outcome = "blocked"
)

// Result is the engine's answer to one inbound request.
type Result struct {
	Session  *domain.Session
	Text     string
	Continue bool
	Outcome  Outcome
}

// Engine interprets one inbound USSD request at a time, advancing the
// session through the fixed step sequence. It owns all session-state
// transitions; callers persist the returned session.
type Engine struct {
	directory    Directory
	members      MemberStore
	cfg          config.USSDConfig
	logger       *zap.Logger
	onRegistered RegisteredFunc
	now          func() time.Time
}

// NewEngine builds the flow engine.
func NewEngine(directory Directory, members MemberStore, cfg config.USSDConfig, logger *zap.Logger, onRegistered RegisteredFunc) *Engine {
	if onRegistered == nil {
		onRegistered = func(context.Context, *domain.Member) {}
	}
	return &Engine{
		directory:    directory,
		members:      members,
		cfg:          cfg,
		logger:       logger,
		onRegistered: onRegistered,
		now:          time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

const (
	cancelInput = "0"

	textCancelled   = "Registration cancelled.\nThank you!"
	textTerminated  = "Too many invalid attempts.\nPlease dial again to restart."
	textUnavailable = "Service temporarily unavailable.\nPlease try again later."
	textBlocked     = "This phone number is already registered.\nThank you!"
)

// Handle processes one inbound request. The input session is never mutated;
// the returned Result.Session carries the state to persist. Response text is
// a pure function of (state, validated input, directory results).
func (e *Engine) Handle(ctx context.Context, session *domain.Session, input string) Result {
	sess := session.Clone()

	if sess.CurrentStep == domain.StepStart {
		return e.enterFlow(ctx, session, sess)
	}

	def, ok := flow[sess.CurrentStep]
	if !ok {
		// Terminal or unknown step: the adapter should never route here.
		sess.Active = false
		return Result{Session: sess, Text: textCancelled, Continue: false, Outcome: OutcomeCancelled}
	}

	if input == cancelInput {
		sess.CurrentStep = domain.StepCancelled
		sess.Active = false
		return Result{Session: sess, Text: textCancelled, Continue: false, Outcome: OutcomeCancelled}
	}

	if err := def.apply(ctx, e, sess, input); err != nil {
		return e.handleApplyError(ctx, session, sess, def, err)
	}

	sess.InvalidAttempts = 0
	return e.advance(ctx, session, sess, def)
}

// enterFlow handles the first request of a session: no input is consumed,
// the caller sees the terms prompt.
func (e *Engine) enterFlow(ctx context.Context, prior, sess *domain.Session) Result {
	if !e.cfg.AllowReregistration {
		_, err := e.members.GetByPhone(ctx, sess.Phone)
		if err == nil {
			sess.CurrentStep = domain.StepCancelled
			sess.Active = false
			return Result{Session: sess, Text: textBlocked, Continue: false, Outcome: OutcomeBlocked}
		}
		if !isNoRows(err) {
			return e.unavailable(prior, err)
		}
	}

	sess.CurrentStep = domain.StepTerms
	text, err := flow[domain.StepTerms].prompt(ctx, e, sess)
	if err != nil {
		return e.unavailable(prior, err)
	}
	return Result{Session: sess, Text: e.clamp(text), Continue: true, Outcome: OutcomeAdvanced}
}

// advance moves to the next step and renders its prompt. A directory failure
// while rendering leaves the prior session state untouched.
func (e *Engine) advance(ctx context.Context, prior, sess *domain.Session, def *stepDef) Result {
	next := def.next
	sess.CurrentStep = next

	if next == domain.StepComplete {
		sess.Active = false
		return Result{
			Session:  sess,
			Text:     e.clamp(completionText(sess)),
			Continue: false,
			Outcome:  OutcomeCompleted,
		}
	}

	text, err := flow[next].prompt(ctx, e, sess)
	if err != nil {
		return e.unavailable(prior, err)
	}
	return Result{Session: sess, Text: e.clamp(text), Continue: true, Outcome: OutcomeAdvanced}
}

func (e *Engine) handleApplyError(ctx context.Context, prior, sess *domain.Session, def *stepDef, err error) Result {
	switch {
	case errors.Is(err, ErrDeclined):
		sess.CurrentStep = domain.StepCancelled
		sess.Active = false
		return Result{Session: sess, Text: textCancelled, Continue: false, Outcome: OutcomeCancelled}

	case errors.Is(err, ErrBackendUnavailable):
		return e.unavailable(prior, err)

	case errors.Is(err, ErrConflict) || apperrors.IsConflict(err):
		if sess.CurrentStep == domain.StepConfirm {
			// Commit-time duplicate: rewind to the voter-ID step and keep the
			// session alive so only that field is re-entered.
			sess.CurrentStep = domain.StepVotersID
			delete(sess.Answers, domain.StepVotersID)
			return Result{
				Session:  sess,
				Text:     e.clamp("Voter ID already registered.\nEnter a different Voter ID:"),
				Continue: true,
				Outcome:  OutcomeConflict,
			}
		}
		text := userText(err)
		if text == "" {
			text = "Already registered.\nEnter a different value:"
		}
		return Result{Session: sess, Text: e.clamp(text), Continue: true, Outcome: OutcomeConflict}

	case errors.Is(err, ErrMalformedInput), errors.Is(err, ErrNotFound):
		sess.InvalidAttempts++
		if e.cfg.MaxInvalidAttempts > 0 && sess.InvalidAttempts >= e.cfg.MaxInvalidAttempts {
			sess.CurrentStep = domain.StepInvalidTerminated
			sess.Active = false
			return Result{Session: sess, Text: textTerminated, Continue: false, Outcome: OutcomeTerminated}
		}
		return Result{Session: sess, Text: e.clamp(e.reprompt(ctx, sess, def, err)), Continue: true, Outcome: OutcomeInvalid}

	default:
		return e.unavailable(prior, err)
	}
}

// reprompt builds the retry text: menu steps re-render their options so
// NotFound selections see a refreshed list.
func (e *Engine) reprompt(ctx context.Context, sess *domain.Session, def *stepDef, cause error) string {
	text := userText(cause)
	if text == "" {
		text = "Invalid input."
	}
	if !def.menu {
		return text
	}
	menu, err := def.prompt(ctx, e, sess)
	if err != nil {
		return text
	}
	return text + "\n" + menu
}

func (e *Engine) unavailable(prior *domain.Session, err error) Result {
	e.logger.Error("ussd backend unavailable",
		zap.String("session_id", prior.ID),
		zap.String("step", string(prior.CurrentStep)),
		zap.Error(err),
	)
	return Result{Session: prior.Clone(), Text: textUnavailable, Continue: true, Outcome: OutcomeUnavailable}
}

// clamp cuts text to the configured character limit on a rune boundary.
func (e *Engine) clamp(text string) string {
	max := e.cfg.ResponseMaxChars
	if max <= 0 || len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func completionText(sess *domain.Session) string {
	return "Registration successful!\n" +
		sess.Answers[domain.StepFirstName] + " " + sess.Answers[domain.StepLastName] + "\n" +
		"Ward: " + sess.Answers[domain.StepWard] + "\n" +
		"Thank you for joining!"
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
