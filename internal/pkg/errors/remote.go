// internal/pkg/errors/remote.go
package xerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes reported by the data service. SQLSTATE values come straight from
// Postgres, PGRST* from the REST layer in front of it.
const (
	CodeUniqueViolation       = "23505"
	CodeForeignKeyViolation   = "23503"
	CodeInsufficientPrivilege = "42501"
	CodeTooManyConnections    = "53300"
	CodeNoRows                = "PGRST116"
	CodeRateLimited           = "429"
)

// RemoteError is implemented by errors returned from the data service.
type RemoteError interface {
	error
	RemoteCode() string
	RemoteMessage() string
	RemoteHint() string
}

// Action names the user operation an error message is reported for.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

const (
	MsgDuplicateEmail   = "A customer with this email already exists."
	MsgInvalidReference = "Invalid reference in the data."
	MsgConnection       = "Connection failed. Please check your internet connection and try again."
	MsgTooManyRequests  = "Too many requests. Please wait a moment and try again."
	MsgViewForbidden    = "You do not have permission to view this customer."
	MsgViewNotFound     = "Customer not found. The UCID may be invalid."
	MsgViewFailed       = "Failed to load customer details. Please try again later."
	MsgLoginLocked      = "Too many login attempts. Please try again in 15 minutes."
)

// AsRemote extracts the data-service error, if any.
func AsRemote(err error) (RemoteError, bool) {
	var re RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// Code returns the remote error code or "".
func Code(err error) string {
	if re, ok := AsRemote(err); ok {
		return re.RemoteCode()
	}
	return ""
}

// IsRateLimited reports whether the data service asked us to slow down.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	switch Code(err) {
	case CodeRateLimited, CodeTooManyConnections:
		return true
	}
	return false
}

func isPermission(err error) bool {
	if errors.Is(err, ErrForbidden) {
		return true
	}
	switch Code(err) {
	case CodeNoRows, CodeInsufficientPrivilege:
		return true
	}
	return false
}

// MutationMessage maps a failed create, update or delete to the message
// shown to the operator.
func MutationMessage(action Action, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnreachable):
		return MsgConnection
	case Code(err) == CodeUniqueViolation:
		return MsgDuplicateEmail
	case Code(err) == CodeForeignKeyViolation:
		return MsgInvalidReference
	case isPermission(err):
		return fmt.Sprintf("You do not have permission to %s customers.", action)
	case IsRateLimited(err):
		return MsgTooManyRequests
	}

	if re, ok := AsRemote(err); ok {
		msg := "Error: " + re.RemoteMessage()
		if re.RemoteHint() != "" {
			msg += " Hint: " + re.RemoteHint()
		}
		return msg
	}
	return "Error: " + err.Error()
}

// ViewMessage maps a failed detail lookup.
func ViewMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case isPermission(err):
		return MsgViewForbidden
	case errors.Is(err, ErrNotFound):
		return MsgViewNotFound
	default:
		return MsgViewFailed
	}
}

// HTTPStatus picks the response status for an error.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case isPermission(err):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict), Code(err) == CodeUniqueViolation:
		return http.StatusConflict
	case Code(err) == CodeForeignKeyViolation:
		return http.StatusUnprocessableEntity
	case IsRateLimited(err):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
