// internal/repository/supabase/customer_repo.go
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"luckylogic-crm/internal/domain/customer"
	xerrors "luckylogic-crm/internal/pkg/errors"
)

const customersPath = "/rest/v1/customers"

type CustomerRepository struct {
	client *Client
}

// NewCustomerRepository reads and writes the customers table over PostgREST.
func NewCustomerRepository(client *Client) *CustomerRepository {
	return &CustomerRepository{client: client}
}

var _ customer.Repository = (*CustomerRepository)(nil)

// Count returns the number of customers matching search.
func (r *CustomerRepository) Count(ctx context.Context, search string) (int64, error) {
	q := url.Values{"select": {"id"}}
	applySearch(q, search)
	return r.count(ctx, q)
}

// CountActive counts customers with active_status set.
func (r *CustomerRepository) CountActive(ctx context.Context) (int64, error) {
	q := url.Values{"select": {"id"}, "active_status": {"eq.true"}}
	return r.count(ctx, q)
}

func (r *CustomerRepository) count(ctx context.Context, q url.Values) (int64, error) {
	hdr, err := r.client.do(ctx, request{
		method:  http.MethodHead,
		path:    customersPath,
		query:   q,
		headers: map[string]string{"Prefer": "count=exact"},
	}, nil)
	if err != nil {
		return 0, err
	}
	return parseContentRange(hdr.Get("Content-Range"))
}

// List returns one slice of customers ordered newest first.
func (r *CustomerRepository) List(ctx context.Context, lq customer.ListQuery) ([]customer.Customer, error) {
	q := url.Values{
		"select": {"*"},
		"order":  {"created_at.desc"},
		"offset": {strconv.Itoa(lq.Offset)},
		"limit":  {strconv.Itoa(lq.Limit)},
	}
	applySearch(q, lq.Search)

	var rows []customer.Customer
	if _, err := r.client.do(ctx, request{method: http.MethodGet, path: customersPath, query: q}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads one customer. A missing row is ErrNotFound.
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*customer.Customer, error) {
	q := url.Values{"select": {"*"}, "id": {"eq." + id}}

	var rows []customer.Customer
	if _, err := r.client.do(ctx, request{method: http.MethodGet, path: customersPath, query: q}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, xerrors.ErrNotFound
	}
	return &rows[0], nil
}

// Create inserts one customer and returns the stored row.
func (r *CustomerRepository) Create(ctx context.Context, f *customer.Fields) (*customer.Customer, error) {
	var rows []customer.Customer
	_, err := r.client.do(ctx, request{
		method:  http.MethodPost,
		path:    customersPath,
		body:    f,
		headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("insert returned %d rows", len(rows))
	}
	return &rows[0], nil
}

// Update writes every editable field. Zero matched rows is reported as
// PGRST116, which is what row-level security produces for a hidden row.
func (r *CustomerRepository) Update(ctx context.Context, id string, f *customer.Fields) (*customer.Customer, error) {
	var rows []customer.Customer
	_, err := r.client.do(ctx, request{
		method:  http.MethodPatch,
		path:    customersPath,
		query:   url.Values{"id": {"eq." + id}},
		body:    f,
		headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, noRows("update")
	}
	return &rows[0], nil
}

// Delete removes one customer. No deleted row is reported as PGRST116.
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	var rows []struct {
		ID string `json:"id"`
	}
	_, err := r.client.do(ctx, request{
		method:  http.MethodDelete,
		path:    customersPath,
		query:   url.Values{"id": {"eq." + id}, "select": {"id"}},
		headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return noRows("delete")
	}
	return nil
}

// TouchLastViewed stamps last_viewed_at.
func (r *CustomerRepository) TouchLastViewed(ctx context.Context, id string, at time.Time) error {
	_, err := r.client.do(ctx, request{
		method:  http.MethodPatch,
		path:    customersPath,
		query:   url.Values{"id": {"eq." + id}},
		body:    map[string]interface{}{"last_viewed_at": at.UTC()},
		headers: map[string]string{"Prefer": "return=minimal"},
	}, nil)
	return err
}

// applySearch adds a case-insensitive substring match on either name.
func applySearch(q url.Values, search string) {
	search = strings.TrimSpace(search)
	if search == "" {
		return
	}
	pattern := quoteFilter("*" + search + "*")
	q.Set("or", fmt.Sprintf("(first_name.ilike.%s,last_name.ilike.%s)", pattern, pattern))
}

// quoteFilter wraps a value in double quotes so commas and parentheses in
// user input cannot break the filter expression.
func quoteFilter(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// parseContentRange reads the total from "0-9/23" or "*/23".
func parseContentRange(h string) (int64, error) {
	i := strings.LastIndex(h, "/")
	if i < 0 || i == len(h)-1 {
		return 0, fmt.Errorf("missing total in Content-Range %q", h)
	}
	total := h[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("count not returned in Content-Range %q", h)
	}
	return strconv.ParseInt(total, 10, 64)
}
