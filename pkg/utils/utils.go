package utils

import "strings"

// MaskEmail redacts the local part of an email address for audit entries and
// logs, keeping just enough to correlate events for one candidate.
// "john.doe@example.com" becomes "jo***@example.com".
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local := email[:at]
	domain := email[at:]
	if len(local) <= 2 {
		return local[:1] + "***" + domain
	}
	return local[:2] + "***" + domain
}

// MaskCode redacts an OTP value, keeping only its width.
func MaskCode(code string) string {
	return strings.Repeat("*", len(code))
}
