package ussd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/member-registry/internal/domain"
)

// languages offered at the LANGUAGE step, in menu order.
var languages = []string{"English", "Bemba", "Nyanja", "Tonga", "Lozi", "Kaonde", "Lunda", "Luvale"}

// stepDef describes one state of the registration flow. The flow is a fixed
// linear sequence: next pointers are derived from the table order, so a new
// step is added by inserting one entry.
type stepDef struct {
	step domain.Step
	next domain.Step
	menu bool

	// prompt renders the question shown when the caller enters this step.
	prompt func(ctx context.Context, e *Engine, s *domain.Session) (string, error)

	// apply validates one answer and records it on the session.
	apply func(ctx context.Context, e *Engine, s *domain.Session, input string) error
}

var flow map[domain.Step]*stepDef

func init() {
	defs := []*stepDef{
		{
			step: domain.StepTerms,
			menu: true,
			prompt: func(context.Context, *Engine, *domain.Session) (string, error) {
				return "Welcome!\nMember registration\n1. Accept terms\n2. Decline", nil
			},
			apply: func(_ context.Context, _ *Engine, s *domain.Session, input string) error {
				switch strings.TrimSpace(input) {
				case "1":
					s.Answer(domain.StepTerms, "accepted")
					return nil
				case "2":
					return ErrDeclined
				default:
					return malformed("Invalid selection.")
				}
			},
		},
		{
			step: domain.StepLanguage,
			menu: true,
			prompt: func(context.Context, *Engine, *domain.Session) (string, error) {
				var b strings.Builder
				b.WriteString("Select language:")
				for i, lang := range languages {
					fmt.Fprintf(&b, "\n%d. %s", i+1, lang)
				}
				return b.String(), nil
			},
			apply: func(_ context.Context, _ *Engine, s *domain.Session, input string) error {
				idx, err := ParseMenuChoice(input, len(languages))
				if err != nil {
					return err
				}
				s.Answer(domain.StepLanguage, languages[idx])
				return nil
			},
		},
		{
			step: domain.StepFirstName,
			prompt: func(context.Context, *Engine, *domain.Session) (string, error) {
				return "First name:", nil
			},
			apply: func(_ context.Context, _ *Engine, s *domain.Session, input string) error {
				name, err := ValidateName(input, "First name")
				if err != nil {
					return err
				}
				s.Answer(domain.StepFirstName, name)
				return nil
			},
		},
		{
			step: domain.StepLastName,
			prompt: func(context.Context, *Engine, *domain.Session) (string, error) {
				return "Last name:", nil
			},
			apply: func(_ context.Context, _ *Engine, s *domain.Session, input string) error {
				name, err := ValidateName(input, "Last name")
				if err != nil {
					return err
				}
				s.Answer(domain.StepLastName, name)
				return nil
			},
		},
		{
			step: domain.StepNRC,
			prompt: func(context.Context, *Engine, *domain.Session) (string, error) {
				return "NRC number:\n(Format: 123456/78/1)", nil
			},
			apply: func(ctx context.Context, e *Engine, s *domain.Session, input string) error {
				nrc, err := ValidateNRC(input)
				if err != nil {
					return err
				}
				if err := e.checkNRCFree(ctx, nrc); err != nil {
					return err
				}
				s.Answer(domain.StepNRC, nrc)
				return nil
			},
		},
		{
			step: domain.StepVotersID,
			prompt: func(context.Context, *Engine, *domain.Session) (string, error) {
				return "Voter ID number:", nil
			},
			apply: func(ctx context.Context, e *Engine, s *domain.Session, input string) error {
				id, err := ValidateVotersID(input)
				if err != nil {
					return err
				}
				if err := e.checkVotersIDFree(ctx, id); err != nil {
					return err
				}
				s.Answer(domain.StepVotersID, id)
				return nil
			},
		},
		{
			step: domain.StepDOB,
			prompt: func(context.Context, *Engine, *domain.Session) (string, error) {
				return "Date of birth:\n(Format: DD/MM/YYYY)", nil
			},
			apply: func(_ context.Context, e *Engine, s *domain.Session, input string) error {
				dob, err := ParseDOB(input, e.now())
				if err != nil {
					return err
				}
				s.Answer(domain.StepDOB, dob.Format(dobLayout))
				return nil
			},
		},
		{
			step: domain.StepGender,
			menu: true,
			prompt: func(context.Context, *Engine, *domain.Session) (string, error) {
				return "Gender:\n1. Male\n2. Female\n3. Other", nil
			},
			apply: func(_ context.Context, _ *Engine, s *domain.Session, input string) error {
				gender, err := ParseGender(input)
				if err != nil {
					return err
				}
				s.Answer(domain.StepGender, string(gender))
				return nil
			},
		},
		geographyStep(domain.StepProvince, domain.LevelProvince, "province", ""),
		geographyStep(domain.StepDistrict, domain.LevelDistrict, "district", domain.StepProvince),
		geographyStep(domain.StepConstituency, domain.LevelConstituency, "constituency", domain.StepDistrict),
		geographyStep(domain.StepWard, domain.LevelWard, "ward", domain.StepConstituency),
		{
			step: domain.StepConfirm,
			menu: true,
			prompt: func(_ context.Context, _ *Engine, s *domain.Session) (string, error) {
				var b strings.Builder
				b.WriteString("Confirm registration:\n")
				fmt.Fprintf(&b, "%s %s\n", s.Answers[domain.StepFirstName], s.Answers[domain.StepLastName])
				fmt.Fprintf(&b, "NRC: %s\n", s.Answers[domain.StepNRC])
				fmt.Fprintf(&b, "Voter ID: %s\n", s.Answers[domain.StepVotersID])
				fmt.Fprintf(&b, "%s, %s\n", s.Answers[domain.StepWard], s.Answers[domain.StepProvince])
				b.WriteString("1. Confirm\n0. Cancel")
				return b.String(), nil
			},
			apply: func(ctx context.Context, e *Engine, s *domain.Session, input string) error {
				if strings.TrimSpace(input) != "1" {
					return malformed("Invalid selection.")
				}
				return e.commit(ctx, s)
			},
		},
	}

	flow = make(map[domain.Step]*stepDef, len(defs))
	for i, def := range defs {
		if i+1 < len(defs) {
			def.next = defs[i+1].step
		} else {
			def.next = domain.StepComplete
		}
		flow[def.step] = def
	}
}

// geographyStep builds a directory-backed menu step. The numeric selection
// indexes into the directory's returned order, which is never re-sorted.
func geographyStep(step domain.Step, level domain.LocationLevel, label string, parentStep domain.Step) *stepDef {
	return &stepDef{
		step: step,
		menu: true,
		prompt: func(ctx context.Context, e *Engine, s *domain.Session) (string, error) {
			options, err := e.childrenFor(ctx, level, s, parentStep)
			if err != nil {
				return "", err
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Select %s:", label)
			for i, opt := range options {
				fmt.Fprintf(&b, "\n%d. %s", i+1, opt.Name)
			}
			return b.String(), nil
		},
		apply: func(ctx context.Context, e *Engine, s *domain.Session, input string) error {
			options, err := e.childrenFor(ctx, level, s, parentStep)
			if err != nil {
				return err
			}
			idx, err := ParseMenuChoice(input, len(options))
			if err != nil {
				return err
			}
			s.Choose(step, options[idx].ID)
			s.Answer(step, options[idx].Name)
			return nil
		},
	}
}

// childrenFor fetches menu options for a geography step, bounded by the
// configured menu size.
func (e *Engine) childrenFor(ctx context.Context, level domain.LocationLevel, s *domain.Session, parentStep domain.Step) ([]domain.LocationOption, error) {
	var parentID int64
	if parentStep != "" {
		parentID = s.Choices[parentStep]
	}

	options, err := e.directory.ChildrenOf(ctx, level, parentID)
	if err != nil {
		return nil, fmt.Errorf("directory query: %w", errors.Join(ErrBackendUnavailable, err))
	}
	if len(options) > e.cfg.MaxMenuOptions && e.cfg.MaxMenuOptions > 0 {
		options = options[:e.cfg.MaxMenuOptions]
	}
	return options, nil
}

func (e *Engine) checkNRCFree(ctx context.Context, nrc string) error {
	_, err := e.members.GetByNRC(ctx, nrc)
	if err == nil {
		return conflict("NRC already registered.\nEnter a different NRC:")
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return fmt.Errorf("nrc lookup: %w", errors.Join(ErrBackendUnavailable, err))
}

func (e *Engine) checkVotersIDFree(ctx context.Context, id string) error {
	_, err := e.members.GetByVotersID(ctx, id)
	if err == nil {
		return conflict("Voter ID already registered.\nEnter a different Voter ID:")
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return fmt.Errorf("voters id lookup: %w", errors.Join(ErrBackendUnavailable, err))
}

// commit creates the member record from accumulated answers. Exactly one
// write happens per completed session.
func (e *Engine) commit(ctx context.Context, s *domain.Session) error {
	dob, err := time.Parse(dobLayout, s.Answers[domain.StepDOB])
	if err != nil {
		return fmt.Errorf("corrupt session dob: %w", err)
	}

	nrc := s.Answers[domain.StepNRC]
	member := &domain.Member{
		FirstName:   s.Answers[domain.StepFirstName],
		LastName:    s.Answers[domain.StepLastName],
		Gender:      domain.Gender(s.Answers[domain.StepGender]),
		DateOfBirth: dob,
		NRC:         &nrc,
		VotersID:    s.Answers[domain.StepVotersID],
		Phone:       s.Phone,
		WardID:      s.Choices[domain.StepWard],
		Channel:     domain.ChannelUSSD,
	}

	if err := e.members.Create(ctx, member); err != nil {
		return err
	}
	e.onRegistered(ctx, member)
	return nil
}
