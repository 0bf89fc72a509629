package errors

import (
	"errors"
	"testing"
)

func TestProtocolFramingError(t *testing.T) {
	wrapped := errors.New("unexpected EOF")
	err := NewProtocolFramingError("reading PDU", wrapped)

	if !errors.Is(err, wrapped) {
		t.Errorf("Unwrap chain does not reach %v", wrapped)
	}
	want := "protocol framing error: reading PDU: unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNegotiationFailedError(t *testing.T) {
	err := NewNegotiationFailedError("no presentation contexts accepted")
	want := "negotiation failed: no presentation contexts accepted"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIdleTimeoutError(t *testing.T) {
	err := NewIdleTimeoutError("30s")
	if !err.Timeout() {
		t.Error("Timeout() = false, want true")
	}
	want := "idle timeout after 30s"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestInvalidTagError(t *testing.T) {
	err := NewInvalidTagError("NotARealKeyword")
	want := `invalid tag: "NotARealKeyword" is not a recognized keyword or hex tag`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
