package errorx

import "net/http"

type Code int

var Unknown = Error{Code: Internal, Message: "Request failed"}

const (
	// Common codes
	BadRequest       Code = 100001
	BadResponse      Code = 100002
	PermissionDenied Code = 100003
	NotFound         Code = 100004
	Unauthenticated  Code = 100005
	AlreadyExists    Code = 100006
	Internal         Code = 100007
	Unavailable      Code = 100008
	NotImplemented   Code = 100009
	TooManyRequests  Code = 100010
)

// Kind returns the stable discriminator of the code which is exposed to clients.
func (c Code) Kind() string {
	switch c {
	case BadRequest:
		return "invalid_input"
	case PermissionDenied:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Unauthenticated:
		return "unauthenticated"
	case AlreadyExists:
		return "conflict"
	case Unavailable:
		return "unavailable"
	case TooManyRequests:
		return "too_many_requests"
	case NotImplemented:
		return "not_implemented"
	default:
		return "internal"
	}
}

func (c Code) HTTPStatus() int {
	switch c {
	case BadRequest:
		return http.StatusBadRequest
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Unauthenticated:
		return http.StatusUnauthorized
	case AlreadyExists:
		return http.StatusConflict
	case Unavailable:
		return http.StatusServiceUnavailable
	case TooManyRequests:
		return http.StatusTooManyRequests
	case NotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller can safely retry the same request.
func (c Code) Retryable() bool {
	return c == Unavailable || c == TooManyRequests
}
