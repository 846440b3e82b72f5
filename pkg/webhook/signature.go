// Package webhook provides event payload signing and validation for the
// outgoing webhook channel. Delivery transport lives outside the core; any
// delivery layer must sign payloads through this package so consumers can
// authenticate them.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// Signature header names carried alongside every webhook request.
const (
	HeaderSignature = "x-signature"
	HeaderTimestamp = "x-timestamp"
)

var (
	// ErrMissingSignature reports an event without signature headers.
	ErrMissingSignature = errors.New("webhook signature headers missing")
	// ErrInvalidSignature reports a signature mismatch.
	ErrInvalidSignature = errors.New("webhook signature mismatch")
	// ErrEventTooOld reports an event older than the allowed age.
	ErrEventTooOld = errors.New("webhook event too old")
)

// Signer computes and verifies HMAC-SHA256 signatures over webhook bodies.
// The signed input is "<unix millis>.<body>", so the timestamp cannot be
// swapped without invalidating the signature.
type Signer struct {
	apiKey []byte
	maxAge time.Duration
}

// NewSigner creates a signer. maxAge bounds how old a signed event may be
// and still validate; a non-positive value defaults to two minutes.
func NewSigner(apiKey string, maxAge time.Duration) *Signer {
	if maxAge <= 0 {
		maxAge = 2 * time.Minute
	}
	return &Signer{apiKey: []byte(apiKey), maxAge: maxAge}
}

// Sign returns the hex signature for body at the given instant.
func (s *Signer) Sign(body []byte, at time.Time) string {
	mac := hmac.New(sha256.New, s.apiKey)
	mac.Write([]byte(strconv.FormatInt(at.UnixMilli(), 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Headers returns the signature headers for body signed at the given instant.
func (s *Signer) Headers(body []byte, at time.Time) map[string]string {
	return map[string]string{
		HeaderSignature: s.Sign(body, at),
		HeaderTimestamp: strconv.FormatInt(at.UnixMilli(), 10),
	}
}

// Validate checks a received body against its signature headers.
func (s *Signer) Validate(body []byte, signature, timestamp string, now time.Time) error {
	if signature == "" || timestamp == "" {
		return ErrMissingSignature
	}
	signedAtMillis, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if now.UnixMilli()-signedAtMillis >= s.maxAge.Milliseconds() {
		return ErrEventTooOld
	}

	expected := s.Sign(body, time.UnixMilli(signedAtMillis))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
