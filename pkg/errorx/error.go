package errorx

import (
	"errors"
	"fmt"
)

type Error struct {
	Code    Code
	Message string

	// Reason is a machine readable token refining the code, for example
	// "not_in_guild" for PermissionDenied or "already_in_guild" for
	// AlreadyExists.
	Reason string
}

func New(code Code, format string, a ...any) Error {
	return Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

func (e Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Reason)
	}

	return e.Message
}

func (e Error) WithReason(reason string) Error {
	e.Reason = reason
	return e
}

// Is compares only codes, so errors.Is(err, errorx.New(errorx.NotFound, ""))
// matches every NotFound error.
func (e Error) Is(target error) bool {
	var t Error
	if !errors.As(target, &t) {
		return false
	}

	return e.Code == t.Code
}

// CodeOf returns the code of err, or Internal if err is not an Error.
func CodeOf(err error) Code {
	var errx Error
	if errors.As(err, &errx) {
		return errx.Code
	}

	return Internal
}
