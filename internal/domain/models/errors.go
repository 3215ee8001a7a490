package models

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode marks a malformed frame payload. Reported to the client.
	ErrDecode = errors.New("decode error")
	// ErrExtraction marks a fault during feature computation. Never reported.
	ErrExtraction = errors.New("extraction fault")
	// ErrSignal marks a fault during evaluation or gating. Never reported.
	ErrSignal = errors.New("signal fault")
	// ErrProtocol marks an unknown or unparsable inbound message.
	ErrProtocol = errors.New("protocol error")
)

// DecodeError describes why a frame could not be decoded. Reason is the
// client-facing text ("invalid_base64", "invalid_image", ...).
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

// Unwrap lets errors.Is match both ErrDecode and the cause.
func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

// NewDecodeError wraps err as a decode failure with the given reason.
func NewDecodeError(reason string, err error) *DecodeError {
	return &DecodeError{Reason: reason, Err: err}
}
