package api

// OpenLinkResponse is returned when a signed link checks out and a code was
// issued.
type OpenLinkResponse struct {
	Message   string `json:"message"`
	RecordID  string `json:"record_id"`
	ExpiresAt string `json:"expires_at"`
	Delivered bool   `json:"delivered"`
}

// SubmitCodeRequest carries the record handle and the submitted code.
type SubmitCodeRequest struct {
	RecordID string `json:"record_id"`
	Code     string `json:"code"`
}

// SubmitCodeResponse is returned when the code verified and a booking token
// was issued.
type SubmitCodeResponse struct {
	Message   string `json:"message"`
	TokenID   string `json:"token_id"`
	ExpiresAt string `json:"expires_at"`
	Delivered bool   `json:"delivered"`
}

// BookingViewResponse renders the confirmation page data.
type BookingViewResponse struct {
	Message        string `json:"message"`
	DestinationURL string `json:"destination_url"`
}

// RedeemResponse is returned when the token was burned.
type RedeemResponse struct {
	Message        string `json:"message"`
	DestinationURL string `json:"destination_url"`
}

// SubjectRequest identifies a subject in admin requests.
type SubjectRequest struct {
	Email    string `json:"email"`
	Brand    string `json:"brand"`
	Position string `json:"position"`
}

// ReissueResponse reports an admin reissue.
type ReissueResponse struct {
	RevokedCount int64  `json:"revoked_count"`
	TokenID      string `json:"token_id"`
	ExpiresAt    string `json:"expires_at"`
}

// RevokeResponse reports an admin revoke.
type RevokeResponse struct {
	RevokedCount int64 `json:"revoked_count"`
}

// ErrorResponse is the uniform error body. Candidate-facing messages stay
// generic; detail goes to logs and the audit sink.
type ErrorResponse struct {
	Error string `json:"error"`
}
