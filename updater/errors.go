package updater

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-fwupdate/flash"
	"github.com/moffa90/go-fwupdate/protocol"
	"github.com/moffa90/go-fwupdate/signature"
)

// FlashError indicates that a flash device operation failed. It is never
// retried by the updater.
type FlashError struct {
	// Op is the failing operation: "read", "write" or "erase"
	Op string

	// Kind is the category reported by the device
	Kind flash.ErrorKind

	// Err is the device error
	Err error
}

func (e *FlashError) Error() string {
	return fmt.Sprintf("flash %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *FlashError) Unwrap() error {
	return e.Err
}

// SignatureReason is the sub-cause of a SignatureError. Callers must treat
// every reason the same way: the image was not armed.
type SignatureReason int

const (
	ReasonVerification SignatureReason = iota
	ReasonMalformedKey
	ReasonMalformedSignature
	ReasonNoBackend
)

func (r SignatureReason) String() string {
	switch r {
	case ReasonMalformedKey:
		return "malformed public key"
	case ReasonMalformedSignature:
		return "malformed signature"
	case ReasonNoBackend:
		return "no signature backend"
	default:
		return "verification failed"
	}
}

// SignatureError indicates that the staged image could not be verified.
type SignatureError struct {
	Reason SignatureReason
	Err    error
}

func (e *SignatureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signature error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("signature error: %s", e.Reason)
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

// StateError indicates that the operation is not allowed in the current
// update state. Staging is refused while a swap is pending.
type StateError struct {
	State protocol.State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("operation not allowed in state %s: a swap is pending", e.State)
}

// newSignatureError maps a backend error onto its reason.
func newSignatureError(err error) *SignatureError {
	reason := ReasonVerification
	switch {
	case errors.Is(err, signature.ErrNoBackend):
		reason = ReasonNoBackend
	case errors.Is(err, signature.ErrMalformedKey):
		reason = ReasonMalformedKey
	case errors.Is(err, signature.ErrMalformedSignature):
		reason = ReasonMalformedSignature
	}
	return &SignatureError{Reason: reason, Err: err}
}

// IsFlashError checks if an error is a FlashError.
func IsFlashError(err error) bool {
	var e *FlashError
	return errors.As(err, &e)
}

// IsSignatureError checks if an error is a SignatureError.
func IsSignatureError(err error) bool {
	var e *SignatureError
	return errors.As(err, &e)
}

// IsStateError checks if an error is a StateError.
func IsStateError(err error) bool {
	var e *StateError
	return errors.As(err, &e)
}
