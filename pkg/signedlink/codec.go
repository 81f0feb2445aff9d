// Package signedlink produces and verifies the tamper-evident, time-bound
// parameters carried by emailed verification links. Links are authenticated by
// a keyed MAC over the subject key and an issue timestamp; nothing is stored
// server-side, so verification is a pure function of the inputs and the
// configured secret.
package signedlink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

var (
	// ErrSignatureMismatch is returned when the supplied signature does not
	// match the recomputed MAC.
	ErrSignatureMismatch = errors.New("link signature mismatch")

	// ErrLinkExpired is returned when the link timestamp is outside the
	// accepted window. Timestamps from the future beyond the clock skew
	// tolerance are rejected the same way.
	ErrLinkExpired = errors.New("link has expired")
)

const (
	defaultMaxAge    = 72 * time.Hour
	defaultClockSkew = 5 * time.Minute
)

// Link is the parameter tuple embedded in a verification URL. It is never
// persisted.
type Link struct {
	Subject   subject.Key
	Timestamp int64
	Signature string
}

// Codec signs and verifies links with an injected secret. Secret rotation is a
// new Codec, never mutation of a live one; rotation invalidates outstanding
// links, which is acceptable because they are short-lived.
type Codec struct {
	secret    []byte
	maxAge    time.Duration
	clockSkew time.Duration
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithMaxAge sets how long after signing a link stays valid.
func WithMaxAge(maxAge time.Duration) CodecOption {
	return func(c *Codec) {
		c.maxAge = maxAge
	}
}

// WithClockSkewTolerance sets how far in the future a link timestamp may be
// before it is rejected.
func WithClockSkewTolerance(skew time.Duration) CodecOption {
	return func(c *Codec) {
		c.clockSkew = skew
	}
}

// NewCodec creates a codec around the given secret.
func NewCodec(secret string, opts ...CodecOption) *Codec {
	codec := &Codec{
		secret:    []byte(secret),
		maxAge:    defaultMaxAge,
		clockSkew: defaultClockSkew,
	}

	for _, opt := range opts {
		opt(codec)
	}

	return codec
}

// Sign produces the signed parameter tuple for a subject at the given time.
func (c *Codec) Sign(key subject.Key, now time.Time) Link {
	ts := now.UTC().Unix()
	return Link{
		Subject:   key,
		Timestamp: ts,
		Signature: c.mac(key, ts),
	}
}

// Verify checks a signature and timestamp against the current time. The MAC
// comparison is constant-time. Signature failures and expiry are terminal for
// the link; callers must not retry them.
func (c *Codec) Verify(key subject.Key, timestamp int64, signature string, now time.Time) error {
	expected := c.mac(key, timestamp)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}

	issued := time.Unix(timestamp, 0).UTC()
	if now.UTC().Sub(issued) > c.maxAge {
		return ErrLinkExpired
	}
	if issued.Sub(now.UTC()) > c.clockSkew {
		return ErrLinkExpired
	}

	return nil
}

func (c *Codec) mac(key subject.Key, timestamp int64) string {
	h := hmac.New(sha256.New, c.secret)
	fmt.Fprintf(h, "%s|%d", key.Canonical(), timestamp)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
