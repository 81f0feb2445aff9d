package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/bookingtoken"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/notice"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/notification"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/otp"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/signedlink"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/verification"
)

type fixture struct {
	server   *httptest.Server
	codec    *signedlink.Codec
	notifier *notification.MockNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec := signedlink.NewCodec("test-secret")
	directory := verification.NewInMemDirectory()
	resolver := verification.NewInMemResolver()
	notifier := notification.NewMockNotifier()

	key := subject.New("jane.doe@example.com", "northline", "deckhand")
	directory.Add(key, &verification.Candidate{
		Email:         key.Email,
		FullName:      "Jane Doe",
		ResolutionKey: "CL-NORTH-01",
	})
	resolver.Set("CL-NORTH-01", &verification.Destination{
		URL:       "https://booking.example.com/northline/deckhand",
		Recruiter: "Pat Recruiter",
	})

	nm := notification.NewNotificationManager()
	nm.RegisterNotifier(notification.EmailSystem, notifier)
	require.NoError(t, notice.RegisterNotices(nm))

	service := verification.NewService(
		codec,
		directory,
		resolver,
		otp.NewEngine(otp.NewInMemRepository()),
		bookingtoken.NewEngine(bookingtoken.NewInMemRepository()),
		verification.WithNotificationManager(nm),
		verification.WithBookingBaseURL("https://verify.example.com"),
	)

	r := chi.NewRouter()
	r.Group(NewHandler(service).Routes)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &fixture{
		server:   server,
		codec:    codec,
		notifier: notifier,
	}
}

func (f *fixture) verifyURL(key subject.Key, link signedlink.Link) string {
	q := url.Values{}
	q.Set("email", key.Email)
	q.Set("brand", key.Brand)
	q.Set("position", key.Position)
	q.Set("ts", fmt.Sprintf("%d", link.Timestamp))
	q.Set("sig", link.Signature)
	return f.server.URL + "/verify?" + q.Encode()
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestVerifyAndBookOverHTTP(t *testing.T) {
	f := newFixture(t)
	key := subject.New("jane.doe@example.com", "northline", "deckhand")
	link := f.codec.Sign(key, time.Now().UTC())

	// Open the signed link
	resp, err := http.Get(f.verifyURL(key, link))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	opened := decode[OpenLinkResponse](t, resp)
	assert.True(t, opened.Delivered)

	sent, ok := f.notifier.Last()
	require.True(t, ok)
	code := sent.Data.Data["Code"]
	require.Len(t, code, 6)

	// Submit the code
	resp = postJSON(t, f.server.URL+"/verify/code", SubmitCodeRequest{
		RecordID: opened.RecordID,
		Code:     code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	submitted := decode[SubmitCodeResponse](t, resp)
	require.NotEmpty(t, submitted.TokenID)

	// GET never burns the token, however many times a scanner prefetches it
	for i := 0; i < 3; i++ {
		resp, err = http.Get(f.server.URL + "/booking/" + submitted.TokenID)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		view := decode[BookingViewResponse](t, resp)
		assert.Equal(t, "https://booking.example.com/northline/deckhand", view.DestinationURL)
	}

	// Only the explicit POST redeems
	resp = postJSON(t, f.server.URL+"/booking/"+submitted.TokenID+"/redeem", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	redeemed := decode[RedeemResponse](t, resp)
	assert.Equal(t, "https://booking.example.com/northline/deckhand", redeemed.DestinationURL)

	// A second redeem is rejected, and so is the view
	resp = postJSON(t, f.server.URL+"/booking/"+submitted.TokenID+"/redeem", nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(f.server.URL + "/booking/" + submitted.TokenID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	resp.Body.Close()
}

func TestOpenLinkRejectsTamperedSignature(t *testing.T) {
	f := newFixture(t)
	key := subject.New("jane.doe@example.com", "northline", "deckhand")
	link := f.codec.Sign(key, time.Now().UTC())
	link.Signature = "forged"

	resp, err := http.Get(f.verifyURL(key, link))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	_, ok := f.notifier.Last()
	assert.False(t, ok, "no code should be sent for a rejected link")
}

func TestOpenLinkIsNonCommittalOnUnknownCandidate(t *testing.T) {
	f := newFixture(t)
	key := subject.New("stranger@example.com", "northline", "deckhand")
	link := f.codec.Sign(key, time.Now().UTC())

	resp, err := http.Get(f.verifyURL(key, link))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)

	// The message must not reveal which field failed to match
	assert.NotContains(t, body.Error, "email")
	assert.NotContains(t, body.Error, "position")
}

func TestSubmitCodeWrongCodeReportsRemainingAttempts(t *testing.T) {
	f := newFixture(t)
	key := subject.New("jane.doe@example.com", "northline", "deckhand")
	link := f.codec.Sign(key, time.Now().UTC())

	resp, err := http.Get(f.verifyURL(key, link))
	require.NoError(t, err)
	opened := decode[OpenLinkResponse](t, resp)

	resp = postJSON(t, f.server.URL+"/verify/code", SubmitCodeRequest{
		RecordID: opened.RecordID,
		Code:     "000000",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Contains(t, body.Error, "2 attempts remaining")
}

func TestSubmitCodeMissingRecord(t *testing.T) {
	f := newFixture(t)

	resp := postJSON(t, f.server.URL+"/verify/code", SubmitCodeRequest{
		RecordID: "b5c2f768-23a1-4a14-9e07-0a0f2dc3a111",
		Code:     "123456",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestBookingUnknownTokenReturnsNotFound(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/booking/not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(f.server.URL + "/booking/b5c2f768-23a1-4a14-9e07-0a0f2dc3a111")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
