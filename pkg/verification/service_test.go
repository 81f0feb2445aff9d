package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/audit"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/bookingtoken"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/notice"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/notification"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/otp"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/signedlink"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

const bookingURL = "https://booking.example.com/northline/deckhand"

type fixture struct {
	service   *Service
	codec     *signedlink.Codec
	directory *InMemDirectory
	resolver  *InMemResolver
	notifier  *notification.MockNotifier
	sink      *audit.MemorySink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec := signedlink.NewCodec("test-secret")
	directory := NewInMemDirectory()
	resolver := NewInMemResolver()
	notifier := notification.NewMockNotifier()
	sink := audit.NewMemorySink()

	nm := notification.NewNotificationManager()
	nm.RegisterNotifier(notification.EmailSystem, notifier)
	require.NoError(t, notice.RegisterNotices(nm))

	service := NewService(
		codec,
		directory,
		resolver,
		otp.NewEngine(otp.NewInMemRepository()),
		bookingtoken.NewEngine(bookingtoken.NewInMemRepository()),
		WithNotificationManager(nm),
		WithAuditSink(sink),
		WithBookingBaseURL("https://verify.example.com"),
	)

	return &fixture{
		service:   service,
		codec:     codec,
		directory: directory,
		resolver:  resolver,
		notifier:  notifier,
		sink:      sink,
	}
}

func (f *fixture) addCandidate(key subject.Key) {
	f.directory.Add(key, &Candidate{
		Email:         key.Email,
		FullName:      "Jane Doe",
		ResolutionKey: "CL-NORTH-01",
	})
	f.resolver.Set("CL-NORTH-01", &Destination{URL: bookingURL, Recruiter: "Pat Recruiter"})
}

func TestFullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	key := subject.New("jane.doe@example.com", "northline", "deckhand")
	f.addCandidate(key)

	link := f.codec.Sign(key, now)

	// Candidate opens the link; a code is issued and mailed.
	opened, err := f.service.OpenLink(ctx, key, link.Timestamp, link.Signature, now)
	require.NoError(t, err)
	assert.True(t, opened.Delivered)
	assert.Equal(t, "Jane Doe", opened.CandidateName)

	sent, ok := f.notifier.Last()
	require.True(t, ok)
	assert.Equal(t, notice.OtpCodeNotice, sent.NoticeType)
	assert.Equal(t, key.Email, sent.Data.To)
	code := sent.Data.Data["Code"]
	require.Len(t, code, 6)

	// Candidate submits the code; a booking token is issued and mailed.
	submitted, err := f.service.SubmitCode(ctx, opened.RecordID, code, now)
	require.NoError(t, err)
	assert.True(t, submitted.Delivered)

	sent, ok = f.notifier.Last()
	require.True(t, ok)
	assert.Equal(t, notice.BookingConfirmationNotice, sent.NoticeType)
	assert.Contains(t, sent.Data.Data["ConfirmationLink"], submitted.TokenID.String())

	// The confirmation page is a read; prefetching it twice burns nothing.
	url, err := f.service.ViewBooking(ctx, submitted.TokenID, now)
	require.NoError(t, err)
	assert.Equal(t, bookingURL, url)

	url, err = f.service.ViewBooking(ctx, submitted.TokenID, now)
	require.NoError(t, err)
	assert.Equal(t, bookingURL, url)

	// The explicit confirm action redeems exactly once.
	url, err = f.service.RedeemBooking(ctx, submitted.TokenID, now)
	require.NoError(t, err)
	assert.Equal(t, bookingURL, url)

	_, err = f.service.RedeemBooking(ctx, submitted.TokenID, now)
	assert.ErrorIs(t, err, bookingtoken.ErrTokenAlreadyUsed)

	// The flow left an audit trail.
	assert.NotEmpty(t, f.sink.Named("otp_sent"))
	assert.NotEmpty(t, f.sink.Named("otp_verified"))
	assert.NotEmpty(t, f.sink.Named("token_redeemed"))
}

func TestOpenLinkRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	key := subject.New("jane.doe@example.com", "northline", "deckhand")
	f.addCandidate(key)

	link := f.codec.Sign(key, now)
	other := subject.New("mallory@example.com", "northline", "deckhand")

	_, err := f.service.OpenLink(ctx, other, link.Timestamp, link.Signature, now)
	assert.ErrorIs(t, err, signedlink.ErrSignatureMismatch)

	// The rejection is audited with a trace id but nothing was issued.
	rejections := f.sink.Named("link_rejected")
	require.Len(t, rejections, 1)
	assert.NotEmpty(t, rejections[0].TraceID)
	assert.Empty(t, f.notifier.Sent())
}

func TestOpenLinkNonCommittalOnMatchFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Unknown candidate.
	unknown := subject.New("ghost@example.com", "northline", "deckhand")
	link := f.codec.Sign(unknown, now)
	_, err := f.service.OpenLink(ctx, unknown, link.Timestamp, link.Signature, now)
	assert.ErrorIs(t, err, ErrNoMatch)

	// Ambiguous candidate: same generic outcome, no field disclosure.
	dup := subject.New("dup@example.com", "northline", "deckhand")
	f.directory.Add(dup, &Candidate{Email: dup.Email, FullName: "A"})
	f.directory.Add(dup, &Candidate{Email: dup.Email, FullName: "B"})
	link = f.codec.Sign(dup, now)
	_, err = f.service.OpenLink(ctx, dup, link.Timestamp, link.Signature, now)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestOpenLinkReportsDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	key := subject.New("jane.doe@example.com", "northline", "deckhand")
	f.addCandidate(key)

	f.notifier.FailWith = errors.New("smtp down")

	link := f.codec.Sign(key, now)
	opened, err := f.service.OpenLink(ctx, key, link.Timestamp, link.Signature, now)

	// Issued but not delivered: the caller can offer a resend.
	require.NoError(t, err)
	assert.False(t, opened.Delivered)
	assert.NotEmpty(t, f.sink.Named("otp_delivery_failed"))
}

func TestResendSupersedesPreviousCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	key := subject.New("jane.doe@example.com", "northline", "deckhand")
	f.addCandidate(key)

	link := f.codec.Sign(key, now)

	first, err := f.service.OpenLink(ctx, key, link.Timestamp, link.Signature, now)
	require.NoError(t, err)
	firstSent, _ := f.notifier.Last()

	second, err := f.service.ResendCode(ctx, key, link.Timestamp, link.Signature, now)
	require.NoError(t, err)
	assert.NotEqual(t, first.RecordID, second.RecordID)

	// The superseded code is dead even if it was correct.
	_, err = f.service.SubmitCode(ctx, first.RecordID, firstSent.Data.Data["Code"], now)
	assert.ErrorIs(t, err, otp.ErrCodeExpired)
}

func TestSubmitCodeUsesBoundDestination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	key := subject.New("jane.doe@example.com", "northline", "deckhand")
	f.addCandidate(key)

	link := f.codec.Sign(key, now)
	opened, err := f.service.OpenLink(ctx, key, link.Timestamp, link.Signature, now)
	require.NoError(t, err)
	sent, _ := f.notifier.Last()

	// The resolver changes between issuance and validation; the destination
	// captured at issuance wins.
	f.resolver.Set("CL-NORTH-01", &Destination{URL: "https://booking.example.com/changed"})

	submitted, err := f.service.SubmitCode(ctx, opened.RecordID, sent.Data.Data["Code"], now)
	require.NoError(t, err)

	url, err := f.service.ViewBooking(ctx, submitted.TokenID, now)
	require.NoError(t, err)
	assert.Equal(t, bookingURL, url)
}

func TestAdminReissueInvalidatesOldToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	key := subject.New("jane.doe@example.com", "northline", "deckhand")
	f.addCandidate(key)

	link := f.codec.Sign(key, now)
	opened, err := f.service.OpenLink(ctx, key, link.Timestamp, link.Signature, now)
	require.NoError(t, err)
	sent, _ := f.notifier.Last()
	submitted, err := f.service.SubmitCode(ctx, opened.RecordID, sent.Data.Data["Code"], now)
	require.NoError(t, err)

	outcome, err := f.service.AdminReissue(ctx, key, "admin:recruiter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), outcome.RevokedCount)
	assert.NotEqual(t, submitted.TokenID, outcome.TokenID)

	_, err = f.service.RedeemBooking(ctx, submitted.TokenID, now)
	assert.ErrorIs(t, err, bookingtoken.ErrTokenRevoked)

	url, err := f.service.RedeemBooking(ctx, outcome.TokenID, now)
	require.NoError(t, err)
	assert.Equal(t, bookingURL, url)
}

func TestAdminReissueSurfacesResolverFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := subject.New("jane.doe@example.com", "northline", "deckhand")

	f.directory.Add(key, &Candidate{Email: key.Email, FullName: "Jane Doe", ResolutionKey: "CL-GONE"})

	_, err := f.service.AdminReissue(ctx, key, "admin:recruiter")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
