// Package api exposes the verification flow over HTTP. The routes keep the
// scanner-safe split: every GET is non-destructive, and only explicit POSTs
// move records toward a terminal state.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/bookingtoken"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/otp"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/signedlink"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/verification"
)

// Candidate-facing messages. Deliberately generic: they never reveal whether
// the identity, position, or code was the failing field.
const (
	msgLinkInvalid   = "This verification link is not valid. Please contact your recruiter."
	msgLinkExpired   = "This verification link has expired. Please contact your recruiter for a new one."
	msgNotVerified   = "We could not verify your details. Please contact your recruiter."
	msgCodeRejected  = "The code you entered is not valid."
	msgCodeExpired   = "This code is no longer valid. Request a new one."
	msgCodeLocked    = "Too many incorrect attempts. Please contact your recruiter."
	msgBookingGone   = "This booking link is no longer valid. Please contact your recruiter."
	msgInternalError = "Something went wrong. Please try again later."
)

// Handler implements the HTTP surface of the verification flow.
type Handler struct {
	service *verification.Service
}

// NewHandler creates a verification API handler.
func NewHandler(service *verification.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// Routes mounts the candidate-facing routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/verify", h.OpenLink)
	r.Post("/verify/code", h.SubmitCode)
	r.Post("/verify/resend", h.ResendCode)
	r.Get("/booking/{tokenID}", h.ViewBooking)
	r.Post("/booking/{tokenID}/redeem", h.RedeemBooking)
}

// AdminRoutes mounts the authenticated admin routes.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/tokens/reissue", h.Reissue)
	r.Post("/tokens/revoke", h.Revoke)
}

// OpenLink handles GET /verify. Read-only validation of the signed link plus
// code issuance; it never consumes anything a scanner prefetch could miss.
func (h *Handler) OpenLink(w http.ResponseWriter, r *http.Request) {
	key, timestamp, signature, ok := linkParams(r)
	if !ok {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: msgLinkInvalid})
		return
	}

	result, err := h.service.OpenLink(r.Context(), key, timestamp, signature, time.Now().UTC())
	if err != nil {
		h.renderOpenLinkError(w, r, err)
		return
	}

	message := "We sent a verification code to your email address."
	if !result.Delivered {
		message = "We could not send your verification code. Please request a resend."
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, OpenLinkResponse{
		Message:   message,
		RecordID:  result.RecordID.String(),
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
		Delivered: result.Delivered,
	})
}

// ResendCode handles POST /verify/resend.
func (h *Handler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Brand     string `json:"brand"`
		Position  string `json:"position"`
		Timestamp int64  `json:"ts"`
		Signature string `json:"sig"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: msgLinkInvalid})
		return
	}

	key := subject.New(req.Email, req.Brand, req.Position)
	result, err := h.service.ResendCode(r.Context(), key, req.Timestamp, req.Signature, time.Now().UTC())
	if err != nil {
		h.renderOpenLinkError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, OpenLinkResponse{
		Message:   "We sent a new verification code to your email address.",
		RecordID:  result.RecordID.String(),
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
		Delivered: result.Delivered,
	})
}

// SubmitCode handles POST /verify/code.
func (h *Handler) SubmitCode(w http.ResponseWriter, r *http.Request) {
	var req SubmitCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: msgCodeRejected})
		return
	}

	recordID, err := uuid.Parse(req.RecordID)
	if err != nil || req.Code == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: msgCodeRejected})
		return
	}

	result, err := h.service.SubmitCode(r.Context(), recordID, req.Code, time.Now().UTC())
	if err != nil {
		status := http.StatusBadRequest
		message := msgCodeRejected

		var invalid *otp.InvalidCodeError
		switch {
		case errors.As(err, &invalid):
			message = msgCodeRejected + " " + strconv.Itoa(int(invalid.Remaining)) + " attempts remaining."
			if invalid.Remaining == 1 {
				message = msgCodeRejected + " 1 attempt remaining."
			}
		case errors.Is(err, otp.ErrCodeLocked):
			message = msgCodeLocked
		case errors.Is(err, otp.ErrCodeExpired):
			message = msgCodeExpired
		case errors.Is(err, otp.ErrCodeAlreadyUsed):
			message = msgCodeExpired
		case errors.Is(err, otp.ErrCodeNotFound):
			status = http.StatusNotFound
			message = msgCodeRejected
		case errors.Is(err, otp.ErrConflict):
			status = http.StatusConflict
			message = msgCodeRejected
		default:
			slog.Error("Failed to validate code", "error", err)
			status = http.StatusInternalServerError
			message = msgInternalError
		}

		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: message})
		return
	}

	message := "Your identity is verified. Check your email for the booking link."
	if !result.Delivered {
		message = "Your identity is verified, but we could not send the booking email. Please contact your recruiter."
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SubmitCodeResponse{
		Message:   message,
		TokenID:   result.TokenID.String(),
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
		Delivered: result.Delivered,
	})
}

// ViewBooking handles GET /booking/{tokenID}. Non-destructive: rendering the
// confirmation page any number of times never burns the token.
func (h *Handler) ViewBooking(w http.ResponseWriter, r *http.Request) {
	tokenID, err := uuid.Parse(chi.URLParam(r, "tokenID"))
	if err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: msgBookingGone})
		return
	}

	url, err := h.service.ViewBooking(r.Context(), tokenID, time.Now().UTC())
	if err != nil {
		h.renderTokenError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, BookingViewResponse{
		Message:        "Confirm below to open your booking page.",
		DestinationURL: url,
	})
}

// RedeemBooking handles POST /booking/{tokenID}/redeem. This is the only
// route that burns the token.
func (h *Handler) RedeemBooking(w http.ResponseWriter, r *http.Request) {
	tokenID, err := uuid.Parse(chi.URLParam(r, "tokenID"))
	if err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: msgBookingGone})
		return
	}

	url, err := h.service.RedeemBooking(r.Context(), tokenID, time.Now().UTC())
	if err != nil {
		h.renderTokenError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RedeemResponse{
		Message:        "Your booking link is ready.",
		DestinationURL: url,
	})
}

// Reissue handles POST /admin/tokens/reissue.
func (h *Handler) Reissue(w http.ResponseWriter, r *http.Request) {
	key, ok := decodeSubject(w, r)
	if !ok {
		return
	}

	outcome, err := h.service.AdminReissue(r.Context(), key, adminActor(r))
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, verification.ErrNoMatch), errors.Is(err, verification.ErrAmbiguousMatch):
			status = http.StatusNotFound
		case errors.Is(err, verification.ErrNotConfigured), errors.Is(err, verification.ErrInactive):
			status = http.StatusConflict
		default:
			slog.Error("Failed to reissue token", "error", err)
			status = http.StatusInternalServerError
		}
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ReissueResponse{
		RevokedCount: outcome.RevokedCount,
		TokenID:      outcome.TokenID.String(),
		ExpiresAt:    outcome.ExpiresAt.Format(time.RFC3339),
	})
}

// Revoke handles POST /admin/tokens/revoke.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	key, ok := decodeSubject(w, r)
	if !ok {
		return
	}

	n, err := h.service.AdminRevoke(r.Context(), key, adminActor(r))
	if err != nil {
		slog.Error("Failed to revoke tokens", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RevokeResponse{RevokedCount: n})
}

func (h *Handler) renderOpenLinkError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	message := msgLinkInvalid

	switch {
	case errors.Is(err, signedlink.ErrSignatureMismatch):
		message = msgLinkInvalid
	case errors.Is(err, signedlink.ErrLinkExpired):
		message = msgLinkExpired
	case errors.Is(err, verification.ErrNoMatch):
		// Ambiguous matches collapse into the same outcome upstream.
		message = msgNotVerified
	default:
		slog.Error("Failed to open verification link", "error", err)
		status = http.StatusInternalServerError
		message = msgInternalError
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

func (h *Handler) renderTokenError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	message := msgBookingGone

	switch {
	case errors.Is(err, bookingtoken.ErrTokenNotFound):
		status = http.StatusNotFound
	case errors.Is(err, bookingtoken.ErrTokenExpired),
		errors.Is(err, bookingtoken.ErrTokenRevoked),
		errors.Is(err, bookingtoken.ErrTokenAlreadyUsed):
		status = http.StatusGone
	default:
		slog.Error("Failed booking token operation", "error", err)
		status = http.StatusInternalServerError
		message = msgInternalError
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

func linkParams(r *http.Request) (subject.Key, int64, string, bool) {
	q := r.URL.Query()
	email := q.Get("email")
	brand := q.Get("brand")
	position := q.Get("position")
	signature := q.Get("sig")
	timestamp, err := strconv.ParseInt(q.Get("ts"), 10, 64)
	if err != nil || email == "" || brand == "" || position == "" || signature == "" {
		return subject.Key{}, 0, "", false
	}
	return subject.New(email, brand, position), timestamp, signature, true
}

func decodeSubject(w http.ResponseWriter, r *http.Request) (subject.Key, bool) {
	var req SubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid request body"})
		return subject.Key{}, false
	}
	if req.Email == "" || req.Brand == "" || req.Position == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "email, brand and position are required"})
		return subject.Key{}, false
	}
	return subject.New(req.Email, req.Brand, req.Position), true
}

func adminActor(r *http.Request) string {
	if actor := r.Header.Get("X-Admin-Actor"); actor != "" {
		return "admin:" + actor
	}
	return "admin:unknown"
}
