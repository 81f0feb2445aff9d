// Package verification composes the signed-link codec, the candidate
// directory, the OTP engine and the booking token engine into the end-to-end
// candidate flow:
//
//	LINK_ISSUED -> LINK_OPENED -> OTP_SENT -> OTP_VERIFIED ->
//	TOKEN_ISSUED -> TOKEN_CONFIRMED -> TOKEN_REDEEMED
//
// The flow state lives entirely in the stored records; the orchestrator is
// stateless and every step is audited with a trace id and a masked subject.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/audit"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/bookingtoken"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/notice"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/notification"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/otp"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/signedlink"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/utils"
)

// Service orchestrates the candidate verification flow.
type Service struct {
	codec               *signedlink.Codec
	directory           CandidateDirectory
	resolver            BookingResolver
	otpEngine           *otp.Engine
	tokenEngine         *bookingtoken.Engine
	notificationManager *notification.NotificationManager
	auditSink           audit.Sink
	bookingBaseURL      string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNotificationManager sets the manager used for candidate emails. Without
// one, sends are skipped (useful in engine-only tests).
func WithNotificationManager(nm *notification.NotificationManager) ServiceOption {
	return func(s *Service) {
		s.notificationManager = nm
	}
}

// WithAuditSink sets the audit sink. Defaults to the slog sink.
func WithAuditSink(sink audit.Sink) ServiceOption {
	return func(s *Service) {
		s.auditSink = sink
	}
}

// WithBookingBaseURL sets the public base URL used to build confirmation
// links in booking emails.
func WithBookingBaseURL(baseURL string) ServiceOption {
	return func(s *Service) {
		s.bookingBaseURL = baseURL
	}
}

// NewService creates the orchestrator.
func NewService(
	codec *signedlink.Codec,
	directory CandidateDirectory,
	resolver BookingResolver,
	otpEngine *otp.Engine,
	tokenEngine *bookingtoken.Engine,
	opts ...ServiceOption,
) *Service {
	service := &Service{
		codec:       codec,
		directory:   directory,
		resolver:    resolver,
		otpEngine:   otpEngine,
		tokenEngine: tokenEngine,
		auditSink:   audit.NewSlogSink(),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// OpenLinkResult is returned when a candidate opens a valid signed link and a
// code has been issued.
type OpenLinkResult struct {
	TraceID       string
	RecordID      uuid.UUID
	ExpiresAt     time.Time
	CandidateName string

	// Delivered is false when the code was issued but the email failed; the
	// caller can offer an explicit resend.
	Delivered bool
}

// OpenLink handles the candidate's GET on the emailed link. Signature and
// expiry failures are terminal and persist nothing; a clean link leads to a
// directory match, code issuance, and a code email. This path only ever
// creates a fresh pending record, so a scanner prefetching the link cannot
// consume anything.
func (s *Service) OpenLink(ctx context.Context, key subject.Key, timestamp int64, signature string, now time.Time) (*OpenLinkResult, error) {
	traceID := uuid.NewString()

	if err := s.codec.Verify(key, timestamp, signature, now); err != nil {
		s.audit(ctx, traceID, key, "link_rejected", map[string]string{"reason": err.Error()})
		slog.Warn("Signed link rejected", "trace_id", traceID, "error", err)
		return nil, err
	}

	s.audit(ctx, traceID, key, "link_opened", nil)

	cand, err := s.directory.Lookup(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNoMatch) || errors.Is(err, ErrAmbiguousMatch) {
			// Non-committal: the caller gets one generic outcome regardless
			// of which field failed or how many rows matched.
			s.audit(ctx, traceID, key, "candidate_not_matched", map[string]string{"reason": err.Error()})
			slog.Warn("Candidate lookup did not produce an exact match", "trace_id", traceID, "error", err)
			return nil, ErrNoMatch
		}
		return nil, fmt.Errorf("candidate lookup failed: %w", err)
	}

	// Capture the destination now so later resolution is immune to
	// configuration drift. A resolver failure here is not fatal; resolution
	// is retried after the code is verified.
	boundResource := cand.Destination
	if boundResource == "" && cand.ResolutionKey != "" {
		dest, err := s.resolver.Resolve(ctx, cand.ResolutionKey)
		if err != nil {
			slog.Warn("Destination not resolvable at issuance, deferring", "trace_id", traceID, "error", err)
		} else {
			boundResource = dest.URL
		}
	}

	issued, err := s.otpEngine.CreateCode(ctx, key, boundResource)
	if err != nil {
		return nil, err
	}

	delivered := true
	expiryMinutes := int(time.Until(issued.ExpiresAt).Round(time.Minute).Minutes())
	err = s.send(notice.OtpCodeNotice, notification.NotificationData{
		To: cand.Email,
		Data: map[string]string{
			"Name":          cand.FullName,
			"Code":          issued.Code,
			"ExpiryMinutes": fmt.Sprintf("%d", expiryMinutes),
			"Brand":         key.Brand,
			"Position":      key.Position,
		},
	})
	if err != nil {
		delivered = false
		s.audit(ctx, traceID, key, "otp_delivery_failed", map[string]string{"error": err.Error()})
		slog.Error("Failed to deliver verification code", "trace_id", traceID, "record_id", issued.ID, "error", err)
	} else {
		s.audit(ctx, traceID, key, "otp_sent", map[string]string{"record_id": issued.ID.String()})
	}

	return &OpenLinkResult{
		TraceID:       traceID,
		RecordID:      issued.ID,
		ExpiresAt:     issued.ExpiresAt,
		CandidateName: cand.FullName,
		Delivered:     delivered,
	}, nil
}

// ResendCode re-issues a code for a still-valid signed link. The previous
// pending code is superseded by the engine.
func (s *Service) ResendCode(ctx context.Context, key subject.Key, timestamp int64, signature string, now time.Time) (*OpenLinkResult, error) {
	return s.OpenLink(ctx, key, timestamp, signature, now)
}

// SubmitCodeResult is returned when a submitted code verifies and a booking
// token has been issued.
type SubmitCodeResult struct {
	TraceID   string
	TokenID   uuid.UUID
	ExpiresAt time.Time

	// Delivered is false when the booking email failed.
	Delivered bool
}

// SubmitCode handles the candidate's POST with the emailed code. On a match
// the orchestrator resolves the booking destination, preferring the resource
// bound at issuance time, issues a booking token and emails the confirmation
// link.
func (s *Service) SubmitCode(ctx context.Context, id uuid.UUID, code string, now time.Time) (*SubmitCodeResult, error) {
	traceID := uuid.NewString()

	result, err := s.otpEngine.ValidateCode(ctx, id, code, now)
	if err != nil {
		// Repeated invalid codes are a signal worth keeping; the candidate
		// still only sees the generic message built by the transport layer.
		switch {
		case errors.Is(err, otp.ErrInvalidCode):
			s.audit(ctx, traceID, subject.Key{}, "otp_invalid", map[string]string{"record_id": id.String()})
		case errors.Is(err, otp.ErrCodeLocked):
			s.audit(ctx, traceID, subject.Key{}, "otp_locked", map[string]string{"record_id": id.String()})
		}
		return nil, err
	}

	key := result.SubjectKey
	s.audit(ctx, traceID, key, "otp_verified", map[string]string{"record_id": id.String()})

	destinationURL := result.BoundResource
	var candidateName string
	cand, lookupErr := s.directory.Lookup(ctx, key)
	if lookupErr == nil {
		candidateName = cand.FullName
	}

	if destinationURL == "" {
		if lookupErr != nil {
			return nil, ErrNoDestination
		}
		dest, err := s.resolver.Resolve(ctx, cand.ResolutionKey)
		if err != nil {
			slog.Error("Failed to resolve booking destination", "trace_id", traceID, "error", err)
			return nil, err
		}
		destinationURL = dest.URL
	}

	tok, err := s.tokenEngine.Issue(ctx, key, destinationURL, "system:verification")
	if err != nil {
		return nil, err
	}
	s.audit(ctx, traceID, key, "token_issued", map[string]string{"token_id": tok.ID.String()})

	delivered := true
	expiryHours := int(time.Until(tok.ExpiresAt).Round(time.Hour).Hours())
	err = s.send(notice.BookingConfirmationNotice, notification.NotificationData{
		To: key.Email,
		Data: map[string]string{
			"Name":             candidateName,
			"ConfirmationLink": fmt.Sprintf("%s/booking/%s", s.bookingBaseURL, tok.ID),
			"ExpiryHours":      fmt.Sprintf("%d", expiryHours),
			"Brand":            key.Brand,
			"Position":         key.Position,
		},
	})
	if err != nil {
		delivered = false
		s.audit(ctx, traceID, key, "booking_delivery_failed", map[string]string{"error": err.Error()})
		slog.Error("Failed to deliver booking confirmation", "trace_id", traceID, "token_id", tok.ID, "error", err)
	}

	return &SubmitCodeResult{
		TraceID:   traceID,
		TokenID:   tok.ID,
		ExpiresAt: tok.ExpiresAt,
		Delivered: delivered,
	}, nil
}

// ViewBooking renders the confirmation view for a token. Non-destructive; the
// GET handler binds here.
func (s *Service) ViewBooking(ctx context.Context, tokenID uuid.UUID, now time.Time) (string, error) {
	traceID := uuid.NewString()

	url, err := s.tokenEngine.ConfirmView(ctx, tokenID, now)
	if err != nil {
		s.audit(ctx, traceID, subject.Key{}, "token_view_rejected", map[string]string{
			"token_id": tokenID.String(),
			"reason":   err.Error(),
		})
		return "", err
	}

	s.audit(ctx, traceID, subject.Key{}, "token_confirmed", map[string]string{"token_id": tokenID.String()})
	return url, nil
}

// RedeemBooking burns the token and returns the destination. The POST handler
// binds here; this is the only path to the used state.
func (s *Service) RedeemBooking(ctx context.Context, tokenID uuid.UUID, now time.Time) (string, error) {
	traceID := uuid.NewString()

	url, err := s.tokenEngine.Redeem(ctx, tokenID, now)
	if err != nil {
		s.audit(ctx, traceID, subject.Key{}, "token_redeem_rejected", map[string]string{
			"token_id": tokenID.String(),
			"reason":   err.Error(),
		})
		return "", err
	}

	s.audit(ctx, traceID, subject.Key{}, "token_redeemed", map[string]string{"token_id": tokenID.String()})
	return url, nil
}

// ReissueOutcome reports an admin-initiated reissue.
type ReissueOutcome struct {
	TraceID      string
	RevokedCount int64
	TokenID      uuid.UUID
	ExpiresAt    time.Time
}

// AdminReissue revokes every active token for the subject and issues a fresh
// one, resolving the destination from the directory and resolver. Resolver
// failures surface here; the admin caller is trusted with the detail.
func (s *Service) AdminReissue(ctx context.Context, key subject.Key, actor string) (*ReissueOutcome, error) {
	traceID := uuid.NewString()

	cand, err := s.directory.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	destinationURL := cand.Destination
	if destinationURL == "" {
		dest, err := s.resolver.Resolve(ctx, cand.ResolutionKey)
		if err != nil {
			return nil, err
		}
		destinationURL = dest.URL
	}

	result, err := s.tokenEngine.Reissue(ctx, key, destinationURL, actor)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, traceID, key, "token_reissued", map[string]string{
		"token_id": result.Token.ID.String(),
		"revoked":  fmt.Sprintf("%d", result.RevokedCount),
		"actor":    actor,
	})

	return &ReissueOutcome{
		TraceID:      traceID,
		RevokedCount: result.RevokedCount,
		TokenID:      result.Token.ID,
		ExpiresAt:    result.Token.ExpiresAt,
	}, nil
}

// AdminRevoke revokes every active token for the subject without issuing a
// replacement.
func (s *Service) AdminRevoke(ctx context.Context, key subject.Key, actor string) (int64, error) {
	traceID := uuid.NewString()

	n, err := s.tokenEngine.RevokeActive(ctx, key, actor)
	if err != nil {
		return 0, err
	}

	s.audit(ctx, traceID, key, "tokens_revoked", map[string]string{
		"count": fmt.Sprintf("%d", n),
		"actor": actor,
	})
	return n, nil
}

func (s *Service) send(noticeType notification.NoticeType, data notification.NotificationData) error {
	if s.notificationManager == nil {
		slog.Warn("Notification manager not configured, skipping send", "noticeType", noticeType)
		return nil
	}
	return s.notificationManager.Send(noticeType, data)
}

func (s *Service) audit(ctx context.Context, traceID string, key subject.Key, name string, metadata map[string]string) {
	masked := ""
	if !key.IsZero() {
		masked = utils.MaskEmail(key.Email) + "|" + key.Brand + "|" + key.Position
	}
	s.auditSink.Record(ctx, audit.Event{
		TraceID:  traceID,
		Subject:  masked,
		Name:     name,
		Metadata: metadata,
		At:       time.Now().UTC(),
	})
}
