package webhook

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndValidate(t *testing.T) {
	signer := NewSigner("meet-api-key", 2*time.Minute)
	body := []byte(`{"event":"meetingEnded","roomId":"room-1"}`)
	now := time.Now()

	headers := signer.Headers(body, now)
	err := signer.Validate(body, headers[HeaderSignature], headers[HeaderTimestamp], now.Add(time.Second))
	if err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestValidateRejectsTamperedBody(t *testing.T) {
	signer := NewSigner("meet-api-key", 2*time.Minute)
	now := time.Now()
	headers := signer.Headers([]byte(`{"event":"meetingEnded"}`), now)

	err := signer.Validate([]byte(`{"event":"meetingStarted"}`), headers[HeaderSignature], headers[HeaderTimestamp], now)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestValidateRejectsWrongKey(t *testing.T) {
	body := []byte(`{"event":"recordingUpdated"}`)
	now := time.Now()
	headers := NewSigner("right-key", 2*time.Minute).Headers(body, now)

	err := NewSigner("wrong-key", 2*time.Minute).Validate(body, headers[HeaderSignature], headers[HeaderTimestamp], now)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestValidateRejectsOldEvent(t *testing.T) {
	signer := NewSigner("meet-api-key", 2*time.Minute)
	body := []byte(`{}`)
	signedAt := time.Now().Add(-3 * time.Minute)
	headers := signer.Headers(body, signedAt)

	err := signer.Validate(body, headers[HeaderSignature], headers[HeaderTimestamp], time.Now())
	if !errors.Is(err, ErrEventTooOld) {
		t.Fatalf("expected ErrEventTooOld, got %v", err)
	}
}

func TestValidateRejectsMissingHeaders(t *testing.T) {
	signer := NewSigner("meet-api-key", time.Minute)

	if err := signer.Validate([]byte(`{}`), "", "123", time.Now()); !errors.Is(err, ErrMissingSignature) {
		t.Errorf("missing signature: got %v", err)
	}
	if err := signer.Validate([]byte(`{}`), "abc", "", time.Now()); !errors.Is(err, ErrMissingSignature) {
		t.Errorf("missing timestamp: got %v", err)
	}
	if err := signer.Validate([]byte(`{}`), "abc", "not-a-number", time.Now()); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("bad timestamp: got %v", err)
	}
}
