package routing

import (
	"errors"
	"fmt"
)

// ErrParameter is wrapped by every invalid-argument failure.
var ErrParameter = errors.New("invalid parameter")

// Status is a HAL return code. It implements error so backends can return it
// directly.
type Status uint32

const (
	StatusOK                Status = 0
	StatusErrUndefined      Status = 0x80001000
	StatusErrResource       Status = 0x80001001
	StatusErrParameter      Status = 0x80001002
	StatusErrIOCtl          Status = 0x80001003
	StatusErrInvalidState   Status = 0x80001004
	StatusErrInternal       Status = 0x80001005
	StatusErrNotImplemented Status = 0x80001006
)

func (s Status) Error() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusErrUndefined:
		return "undefined error"
	case StatusErrResource:
		return "resource error"
	case StatusErrParameter:
		return "parameter error"
	case StatusErrIOCtl:
		return "ioctl error"
	case StatusErrInvalidState:
		return "invalid state"
	case StatusErrInternal:
		return "internal error"
	case StatusErrNotImplemented:
		return "not implemented"
	default:
		return fmt.Sprintf("status 0x%x", uint32(s))
	}
}

// BackendError reports a failure returned by the UCM backend.
type BackendError struct {
	Op   string
	Code Status
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("ucm %s: %v (0x%x)", e.Op, e.Err, uint32(e.Code))
}

func (e *BackendError) Unwrap() error { return e.Err }

// Status returns the backend's status code.
func (e *BackendError) Status() Status { return e.Code }

func paramErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrParameter, fmt.Sprintf(format, args...))
}

func backendError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Code: StatusOf(err), Err: err}
}

// StatusOf extracts the HAL status code carried by err.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	type statuser interface{ Status() Status }
	var st statuser
	if errors.As(err, &st) {
		return st.Status()
	}
	if errors.Is(err, ErrParameter) {
		return StatusErrParameter
	}
	return StatusErrInternal
}
