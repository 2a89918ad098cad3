package dto

import (
	"time"

	"github.com/spec-kit/member-registry/internal/domain"
)

// CreateMemberRequest payload. DateOfBirth uses the DD/MM/YYYY format shared
// with the USSD flow.
type CreateMemberRequest struct {
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
	Gender      domain.Gender `json:"gender"`
	DateOfBirth string        `json:"date_of_birth"`
	NRC         *string       `json:"nrc"`
	VotersID    string        `json:"voters_id"`
	Phone       string        `json:"phone"`
	WardID      int64         `json:"ward_id"`
}

// BulkCreateMembersRequest wraps a batch submission.
type BulkCreateMembersRequest struct {
	Members []CreateMemberRequest `json:"members"`
}

// MemberResponse full record.
type MemberResponse struct {
	ID          int64                      `json:"id"`
	FirstName   string                     `json:"first_name"`
	LastName    string                     `json:"last_name"`
	Gender      domain.Gender              `json:"gender"`
	DateOfBirth string                     `json:"date_of_birth"`
	NRC         *string                    `json:"nrc"`
	VotersID    string                     `json:"voters_id"`
	Phone       string                     `json:"phone"`
	WardID      int64                      `json:"ward_id"`
	Channel     domain.RegistrationChannel `json:"channel"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// BulkRowResult reports the outcome of one row of a bulk submission.
type BulkRowResult struct {
	Index  int             `json:"index"`
	Member *MemberResponse `json:"member,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BulkCreateMembersResponse summarizes a batch.
type BulkCreateMembersResponse struct {
	Created int             `json:"created"`
	Failed  int             `json:"failed"`
	Results []BulkRowResult `json:"results"`
}

// NewMemberResponse maps a domain member onto the wire shape.
func NewMemberResponse(m *domain.Member) *MemberResponse {
	return &MemberResponse{
		ID:          m.ID,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Gender:      m.Gender,
		DateOfBirth: m.DateOfBirth.Format("02/01/2006"),
		NRC:         m.NRC,
		VotersID:    m.VotersID,
		Phone:       m.Phone,
		WardID:      m.WardID,
		Channel:     m.Channel,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
