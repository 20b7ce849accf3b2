// internal/repository/supabase/errors.go
package supabase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	xerrors "luckylogic-crm/internal/pkg/errors"
)

// Error is a PostgREST or GoTrue error body.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("data service error %d (%s): %s", e.Status, e.Code, e.Message)
}

func (e *Error) RemoteCode() string    { return e.Code }
func (e *Error) RemoteMessage() string { return e.Message }
func (e *Error) RemoteHint() string    { return e.Hint }

var _ xerrors.RemoteError = (*Error)(nil)

func noRows(op string) *Error {
	return &Error{
		Status:  http.StatusNotAcceptable,
		Code:    xerrors.CodeNoRows,
		Message: op + " affected no rows",
	}
}

func decodeError(status int, body []byte) *Error {
	e := &Error{Status: status}

	// GoTrue uses a different shape than PostgREST.
	var raw struct {
		Code             json.RawMessage `json:"code"`
		ErrorCode        string          `json:"error_code"`
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Details          json.RawMessage `json:"details"`
		Hint             string          `json:"hint"`
	}
	if err := json.Unmarshal(body, &raw); err == nil {
		e.Code = rawString(raw.Code)
		if raw.ErrorCode != "" {
			e.Code = raw.ErrorCode
		}
		e.Message = firstNonEmpty(raw.Message, raw.Msg, raw.ErrorDescription, raw.Error)
		e.Details = rawString(raw.Details)
		e.Hint = raw.Hint
	}

	if status == http.StatusTooManyRequests {
		e.Code = xerrors.CodeRateLimited
	}
	if e.Code == "" {
		e.Code = strconv.Itoa(status)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func rawString(r json.RawMessage) string {
	if len(r) == 0 || string(r) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		return s
	}
	return string(r)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
