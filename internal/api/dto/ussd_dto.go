package dto

import "time"

// USSDRequest is the gateway envelope. Gateways vary between JSON and form
// encoding but agree on these field names.
type USSDRequest struct {
	SessionID string `json:"sessionId" form:"sessionId"`
	MSISDN    string `json:"msisdn" form:"msisdn"`
	Text      string `json:"text" form:"text"`
}

// USSDResponse is the reply envelope the gateway renders on the handset.
type USSDResponse struct {
	ResponseString  string `json:"response_string"`
	ContinueSession bool   `json:"continue_session"`
	SessionID       string `json:"session_id"`
}

// ActiveSessionResponse is the introspection shape for live sessions.
type ActiveSessionResponse struct {
	SessionID       string    `json:"session_id"`
	Phone           string    `json:"phone"`
	CurrentStep     string    `json:"current_step"`
	InvalidAttempts int       `json:"invalid_attempts"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
