package customer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"luckylogic-crm/internal/domain/customer"
	xerrors "luckylogic-crm/internal/pkg/errors"
	"luckylogic-crm/internal/pkg/retry"
	service "luckylogic-crm/internal/service/customer"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const knownID = "6f1c1a52-3a0e-4d3e-9d55-0f5a8d7c2b11"

type remoteErr struct{ code, msg, hint string }

func (e *remoteErr) Error() string         { return e.code + ": " + e.msg }
func (e *remoteErr) RemoteCode() string    { return e.code }
func (e *remoteErr) RemoteMessage() string { return e.msg }
func (e *remoteErr) RemoteHint() string    { return e.hint }

// stubRepo fails every write with err and serves a single customer.
type stubRepo struct {
	err error
}

func (r *stubRepo) Count(context.Context, string) (int64, error) { return 0, r.err }
func (r *stubRepo) CountActive(context.Context) (int64, error)   { return 0, nil }
func (r *stubRepo) List(context.Context, customer.ListQuery) ([]customer.Customer, error) {
	return nil, r.err
}

func (r *stubRepo) FindByID(_ context.Context, id string) (*customer.Customer, error) {
	if r.err != nil {
		return nil, r.err
	}
	if id != knownID {
		return nil, xerrors.ErrNotFound
	}
	return &customer.Customer{ID: id, Fields: customer.Fields{FirstName: "Ada", LastName: "Lovelace"}}, nil
}

func (r *stubRepo) Create(context.Context, *customer.Fields) (*customer.Customer, error) {
	return nil, r.err
}

func (r *stubRepo) Update(context.Context, string, *customer.Fields) (*customer.Customer, error) {
	return nil, r.err
}

func (r *stubRepo) Delete(context.Context, string) error { return r.err }

func (r *stubRepo) TouchLastViewed(context.Context, string, time.Time) error { return nil }

func newRouter(repo customer.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewCustomerService(repo, nil, nil, zap.NewNop(), service.WithRetryPolicy(retry.Policy{
		MaxAttempts: 4,
		Backoff:     retry.Linear(2000 * time.Millisecond),
		Retryable:   xerrors.IsRateLimited,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}))
	h := NewCustomerHandler(svc, zap.NewNop())

	r := gin.New()
	r.GET("/customers/:id", h.GetCustomer)
	r.POST("/customers", h.CreateCustomer)
	r.PUT("/customers/:id", h.UpdateCustomer)
	r.DELETE("/customers/:id", h.DeleteCustomer)
	return r
}

func call(r http.Handler, method, path string, body interface{}) (int, string) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env.Message
}

func payload() map[string]interface{} {
	return map[string]interface{}{
		"first_name":     "Ada",
		"last_name":      "Lovelace",
		"email_address":  "ada@example.com",
		"address_line_1": "1 George St",
		"suburb":         "Sydney",
		"postcode":       "2000",
		"state":          "NSW",
		"active_status":  true,
	}
}

func TestMutationErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		method     string
		path       string
		wantStatus int
		wantMsg    string
	}{
		{"duplicate email", &remoteErr{code: "23505", msg: "duplicate key"}, http.MethodPost, "/customers", http.StatusConflict, xerrors.MsgDuplicateEmail},
		{"bad reference", &remoteErr{code: "23503", msg: "fk"}, http.MethodPost, "/customers", http.StatusUnprocessableEntity, xerrors.MsgInvalidReference},
		{"update denied", &remoteErr{code: "PGRST116", msg: "no rows"}, http.MethodPut, "/customers/" + knownID, http.StatusForbidden, "You do not have permission to update customers."},
		{"delete denied", &remoteErr{code: "42501", msg: "denied"}, http.MethodDelete, "/customers/" + knownID, http.StatusForbidden, "You do not have permission to delete customers."},
		{"other remote", &remoteErr{code: "22001", msg: "value too long", hint: "shorten it"}, http.MethodPost, "/customers", http.StatusInternalServerError, "Error: value too long Hint: shorten it"},
		{"network", xerrors.ErrUnreachable, http.MethodPost, "/customers", http.StatusBadGateway, xerrors.MsgConnection},
		{"rate limited", &remoteErr{code: "429", msg: "slow down"}, http.MethodPost, "/customers", http.StatusTooManyRequests, xerrors.MsgTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&stubRepo{err: tt.err})
			var body interface{}
			if tt.method != http.MethodDelete {
				body = payload()
			}
			status, msg := call(r, tt.method, tt.path, body)
			if status != tt.wantStatus || msg != tt.wantMsg {
				t.Fatalf("got %d %q, want %d %q", status, msg, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestGetCustomerMessages(t *testing.T) {
	r := newRouter(&stubRepo{})

	if status, _ := call(r, http.MethodGet, "/customers/"+knownID, nil); status != http.StatusOK {
		t.Fatalf("known id: status %d", status)
	}
	if status, msg := call(r, http.MethodGet, "/customers/7d4c1a52-3a0e-4d3e-9d55-0f5a8d7c2b11", nil); status != http.StatusNotFound || msg != xerrors.MsgViewNotFound {
		t.Fatalf("unknown id: %d %q", status, msg)
	}

	r = newRouter(&stubRepo{err: &remoteErr{code: "PGRST116", msg: "no rows"}})
	if status, msg := call(r, http.MethodGet, "/customers/"+knownID, nil); status != http.StatusForbidden || msg != xerrors.MsgViewForbidden {
		t.Fatalf("denied: %d %q", status, msg)
	}

	r = newRouter(&stubRepo{err: errors.New("boom")})
	if status, msg := call(r, http.MethodGet, "/customers/"+knownID, nil); status != http.StatusInternalServerError || msg != xerrors.MsgViewFailed {
		t.Fatalf("failure: %d %q", status, msg)
	}
}

func TestCreateRejectsMarkupOnlyName(t *testing.T) {
	r := newRouter(&stubRepo{})
	body := payload()
	body["first_name"] = "<b></b>"

	status, _ := call(r, http.MethodPost, "/customers", body)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}
