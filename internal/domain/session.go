package domain

import "time"

// Step enumerates the USSD registration flow states.
type Step string

const (
	StepStart        Step = "START"
	StepTerms        Step = "TERMS"
	StepLanguage     Step = "LANGUAGE"
	StepFirstName    Step = "FIRST_NAME"
	StepLastName     Step = "LAST_NAME"
	StepNRC          Step = "NRC"
	StepVotersID     Step = "VOTERS_ID"
	StepDOB          Step = "DOB"
	StepGender       Step = "GENDER"
	StepProvince     Step = "PROVINCE"
	StepDistrict     Step = "DISTRICT"
	StepConstituency Step = "CONSTITUENCY"
	StepWard         Step = "WARD"
	StepConfirm      Step = "CONFIRM"

	StepComplete          Step = "COMPLETE"
	StepCancelled         Step = "CANCELLED"
	StepInvalidTerminated Step = "INVALID_TERMINATED"
)

// Terminal reports whether the step ends a session.
func (s Step) Terminal() bool {
	switch s {
	case StepComplete, StepCancelled, StepInvalidTerminated:
		return true
	}
	return false
}

// Session tracks a caller's progress through the registration flow.
// It is mutated only by the flow engine, once per inbound request.
type Session struct {
	ID              string
	Phone           string
	CurrentStep     Step
	Answers         map[Step]string
	Choices         map[Step]int64
	InvalidAttempts int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewSession returns a fresh session positioned at the start of the flow.
func NewSession(id, phone string, now time.Time) *Session {
	return &Session{
		ID:          id,
		Phone:       phone,
		CurrentStep: StepStart,
		Answers:     make(map[Step]string),
		Choices:     make(map[Step]int64),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Answer records a validated answer for a step.
func (s *Session) Answer(step Step, value string) {
	if s.Answers == nil {
		s.Answers = make(map[Step]string)
	}
	s.Answers[step] = value
}

// Choose caches the directory id selected at a geography step.
func (s *Session) Choose(step Step, id int64) {
	if s.Choices == nil {
		s.Choices = make(map[Step]int64)
	}
	s.Choices[step] = id
}

// Clone deep-copies the session so callers can mutate it independently.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Answers = make(map[Step]string, len(s.Answers))
	for k, v := range s.Answers {
		clone.Answers[k] = v
	}
	clone.Choices = make(map[Step]int64, len(s.Choices))
	for k, v := range s.Choices {
		clone.Choices[k] = v
	}
	return &clone
}

// Expired reports whether the session has been idle longer than timeout.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.UpdatedAt) > timeout
}
