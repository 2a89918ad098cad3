package domain

import "time"

// Gender enumerates recorded member genders.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// RegistrationChannel records where a member record originated.
type RegistrationChannel string

const (
	ChannelWeb  RegistrationChannel = "web"
	ChannelUSSD RegistrationChannel = "ussd"
)

// Member is the aggregate for registered party members.
// VotersID is globally unique; NRC is optional but unique when present.
type Member struct {
	ID          int64
	FirstName   string
	LastName    string
	Gender      Gender
	DateOfBirth time.Time
	NRC         *string
	VotersID    string
	Phone       string
	WardID      int64
	Channel     RegistrationChannel
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullName joins the name parts for display.
func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}
