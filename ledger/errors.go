package ledger

import (
	"errors"
	"fmt"
)

// Code is a stable, named error code. The string names are part of the
// external contract: auditors and test suites match on them, not on the
// human-readable messages.
type Code string

const (
	CodeAlreadyPublished      Code = "AlreadyPublished"
	CodeUnauthorized          Code = "Unauthorized"
	CodeCapacityExceeded      Code = "CapacityExceeded"
	CodeNoResponsesSubmitted  Code = "NoResponsesSubmitted"
	CodeFieldTooLong          Code = "FieldTooLong"
	CodeInvalidEnum           Code = "InvalidEnum"
	CodeLengthMismatch        Code = "LengthMismatch"
	CodeNotFound              Code = "NotFound"
	CodeAlreadyExists         Code = "AlreadyExists"
	CodeInvalidTransition     Code = "InvalidTransition"
	CodeMerkleMismatch        Code = "MerkleMismatch"
	CodeSignatureVerification Code = "SignatureVerificationFailed"
)

// Error is a precondition failure. All ledger errors are detected before
// mutation; none of them are retryable.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the stable code from an error, or the empty Code when
// the error did not originate from the ledger.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is makes two ledger errors match when their codes match, so callers can
// use errors.Is with a bare code sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}
