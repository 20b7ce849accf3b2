package xerrors

import (
	"fmt"
	"net/http"
	"testing"
)

type fakeRemote struct {
	code, msg, hint string
}

func (e *fakeRemote) Error() string         { return e.code + ": " + e.msg }
func (e *fakeRemote) RemoteCode() string    { return e.code }
func (e *fakeRemote) RemoteMessage() string { return e.msg }
func (e *fakeRemote) RemoteHint() string    { return e.hint }

func TestMutationMessage(t *testing.T) {
	cases := []struct {
		name   string
		action Action
		err    error
		want   string
	}{
		{"duplicate", ActionAdd, &fakeRemote{code: CodeUniqueViolation}, MsgDuplicateEmail},
		{"foreign key", ActionUpdate, &fakeRemote{code: CodeForeignKeyViolation}, MsgInvalidReference},
		{"no rows on update", ActionUpdate, &fakeRemote{code: CodeNoRows}, "You do not have permission to update customers."},
		{"rls on delete", ActionDelete, &fakeRemote{code: CodeInsufficientPrivilege}, "You do not have permission to delete customers."},
		{"generic with hint", ActionAdd, &fakeRemote{code: "22001", msg: "value too long", hint: "shorten it"}, "Error: value too long Hint: shorten it"},
		{"generic", ActionAdd, &fakeRemote{code: "22001", msg: "value too long"}, "Error: value too long"},
		{"network", ActionAdd, fmt.Errorf("post: %w", ErrUnreachable), MsgConnection},
		{"rate limit", ActionAdd, &fakeRemote{code: CodeRateLimited}, MsgTooManyRequests},
		{"wrapped", ActionAdd, fmt.Errorf("failed to create customer: %w", &fakeRemote{code: CodeUniqueViolation}), MsgDuplicateEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MutationMessage(tc.action, tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestViewMessage(t *testing.T) {
	if got := ViewMessage(&fakeRemote{code: CodeNoRows}); got != MsgViewForbidden {
		t.Fatalf("expected permission message, got %q", got)
	}
	if got := ViewMessage(fmt.Errorf("customer: %w", ErrNotFound)); got != MsgViewNotFound {
		t.Fatalf("expected not found message, got %q", got)
	}
	if got := ViewMessage(ErrUnreachable); got != MsgViewFailed {
		t.Fatalf("expected generic message, got %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[int]error{
		http.StatusConflict:            &fakeRemote{code: CodeUniqueViolation},
		http.StatusUnprocessableEntity: &fakeRemote{code: CodeForeignKeyViolation},
		http.StatusForbidden:           &fakeRemote{code: CodeNoRows},
		http.StatusTooManyRequests:     &fakeRemote{code: CodeTooManyConnections},
		http.StatusBadGateway:          ErrUnreachable,
		http.StatusNotFound:            ErrNotFound,
		http.StatusInternalServerError: fmt.Errorf("boom"),
	}
	for want, err := range cases {
		if got := HTTPStatus(err); got != want {
			t.Fatalf("%v: expected %d, got %d", err, want, got)
		}
	}
}
