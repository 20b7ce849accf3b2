// internal/client/listview.go
package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"luckylogic-crm/internal/domain/customer"
)

// DefaultDebounce is the quiet period after the last filter keystroke
// before a query is issued.
const DefaultDebounce = 400 * time.Millisecond

// Lister fetches one page of customers.
type Lister interface {
	ListCustomers(ctx context.Context, search string, page int) (*customer.CustomerListResponse, error)
}

// ListState is a snapshot of the list view.
type ListState struct {
	Search     string
	Page       int
	Total      int64
	TotalPages int
	Customers  []customer.Customer
	Err        error
}

// ListView keeps the search filter and page of an interactive customer list.
// Filter changes are debounced and reset the page to 1. Results of queries
// superseded by a newer one are discarded.
type ListView struct {
	lister   Lister
	debounce time.Duration
	onUpdate func(ListState)

	mu    sync.Mutex
	state ListState
	timer *time.Timer
	seq   uint64
}

type ListViewOption func(*ListView)

func WithDebounce(d time.Duration) ListViewOption {
	return func(v *ListView) { v.debounce = d }
}

// OnUpdate is called after every completed query, from the goroutine that ran it.
func OnUpdate(fn func(ListState)) ListViewOption {
	return func(v *ListView) { v.onUpdate = fn }
}

// NewListView returns a view on page 1 with an empty filter. Call Refresh
// to load it.
func NewListView(lister Lister, opts ...ListViewOption) *ListView {
	v := &ListView{
		lister:   lister,
		debounce: DefaultDebounce,
		state:    ListState{Page: 1},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// State returns a copy of the current page.
func (v *ListView) State() ListState {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	s.Customers = append([]customer.Customer(nil), v.state.Customers...)
	return s
}

// Refresh reloads the current page now.
func (v *ListView) Refresh(ctx context.Context) ListState {
	v.mu.Lock()
	v.stopTimerLocked()
	v.seq++
	seq, search, page := v.seq, v.state.Search, v.state.Page
	v.mu.Unlock()

	return v.fetch(ctx, seq, search, page)
}

// SetFilter changes the search text, resets the page to 1 and schedules a
// query once the filter has been quiet for the debounce period.
func (v *ListView) SetFilter(ctx context.Context, search string) {
	search = strings.TrimSpace(search)

	v.mu.Lock()
	defer v.mu.Unlock()

	v.state.Search = search
	v.state.Page = 1
	v.stopTimerLocked()
	v.seq++
	seq := v.seq

	v.timer = time.AfterFunc(v.debounce, func() {
		v.fetch(ctx, seq, search, 1)
	})
}

// Next moves forward one page, staying on the last page.
func (v *ListView) Next(ctx context.Context) ListState {
	return v.GoTo(ctx, v.State().Page+1)
}

// Prev moves back one page, staying on the first page.
func (v *ListView) Prev(ctx context.Context) ListState {
	return v.GoTo(ctx, v.State().Page-1)
}

// GoTo loads page, clamped to [1, total pages].
func (v *ListView) GoTo(ctx context.Context, page int) ListState {
	v.mu.Lock()
	page = clampPage(page, v.state.TotalPages)
	if page == v.state.Page && v.state.Customers != nil {
		s := v.state
		v.mu.Unlock()
		return s
	}
	v.state.Page = page
	v.stopTimerLocked()
	v.seq++
	seq, search := v.seq, v.state.Search
	v.mu.Unlock()

	return v.fetch(ctx, seq, search, page)
}

// Close cancels a pending debounced query.
func (v *ListView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopTimerLocked()
}

func (v *ListView) fetch(ctx context.Context, seq uint64, search string, page int) ListState {
	resp, err := v.lister.ListCustomers(ctx, search, page)

	v.mu.Lock()
	if seq != v.seq {
		s := v.state
		v.mu.Unlock()
		return s
	}
	v.state.Err = err
	if err == nil {
		v.state.Total = resp.Total
		v.state.TotalPages = resp.TotalPages
		v.state.Customers = resp.Customers
		if v.state.Customers == nil {
			v.state.Customers = []customer.Customer{}
		}
	}
	s := v.state
	v.mu.Unlock()

	if v.onUpdate != nil {
		v.onUpdate(s)
	}
	return s
}

func (v *ListView) stopTimerLocked() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

func clampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}
