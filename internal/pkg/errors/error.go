// internal/pkg/errors/error.go
package xerrors

import "errors"

// Sentinels for the failure classes the API maps to HTTP statuses and
// operator messages. Remote errors from the data service are typed; see
// RemoteError.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict: resource already exists")
	ErrInternal       = errors.New("internal server error")
	ErrRateLimited    = errors.New("too many requests")
	ErrSessionExpired = errors.New("session expired or invalid")
	ErrBadRequest     = errors.New("bad request")
	ErrUnreachable    = errors.New("remote service unreachable")
)
