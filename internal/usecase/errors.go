package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorMissingCredential  ErrorCode = "MISSING_CREDENTIAL"
	ErrorInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrorPreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	ErrorUpstream           ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal           ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// NewError builds a coded error for callers outside this package.
func NewError(code ErrorCode, reason string, err error) *Error {
	return newError(code, reason, err)
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type responseBodier interface {
	ResponseBody() string
}

// UpstreamStatusCode returns the HTTP status of the remote failure in err's
// chain, if there is one.
func UpstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

// UpstreamBody returns the response body of the remote failure in err's chain.
func UpstreamBody(err error) string {
	var b responseBodier
	if !errors.As(err, &b) {
		return ""
	}
	return b.ResponseBody()
}
