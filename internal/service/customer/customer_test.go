package customer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"luckylogic-crm/internal/domain/customer"
	wstypes "luckylogic-crm/internal/domain/websocket"
	"luckylogic-crm/internal/kvstore"
	xerrors "luckylogic-crm/internal/pkg/errors"
	"luckylogic-crm/internal/pkg/retry"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type remoteErr struct{ code, msg string }

func (e *remoteErr) Error() string         { return e.code + " " + e.msg }
func (e *remoteErr) RemoteCode() string    { return e.code }
func (e *remoteErr) RemoteMessage() string { return e.msg }
func (e *remoteErr) RemoteHint() string    { return "" }

// memRepo is an in-memory customer table.
type memRepo struct {
	mu       sync.Mutex
	rows     map[string]customer.Customer
	seq      int
	base     time.Time
	failNext []error
	calls    map[string]int
	touchErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		rows:  make(map[string]customer.Customer),
		base:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		calls: make(map[string]int),
	}
}

func (r *memRepo) popFailure(op string) error {
	r.calls[op]++
	if len(r.failNext) == 0 {
		return nil
	}
	err := r.failNext[0]
	r.failNext = r.failNext[1:]
	return err
}

func (r *memRepo) matching(search string) []customer.Customer {
	needle := strings.ToLower(strings.TrimSpace(search))
	var out []customer.Customer
	for _, c := range r.rows {
		if needle == "" ||
			strings.Contains(strings.ToLower(c.FirstName), needle) ||
			strings.Contains(strings.ToLower(c.LastName), needle) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memRepo) Count(ctx context.Context, search string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["count"]++
	return int64(len(r.matching(search))), nil
}

func (r *memRepo) CountActive(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.rows {
		if c.ActiveStatus {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) List(ctx context.Context, q customer.ListQuery) ([]customer.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(q.Search)
	if q.Offset >= len(all) {
		return nil, nil
	}
	end := q.Offset + q.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[q.Offset:end], nil
}

func (r *memRepo) FindByID(ctx context.Context, id string) (*customer.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &c, nil
}

func (r *memRepo) Create(ctx context.Context, f *customer.Fields) (*customer.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("create"); err != nil {
		return nil, err
	}
	for _, c := range r.rows {
		if c.EmailAddress == f.EmailAddress {
			return nil, &remoteErr{code: xerrors.CodeUniqueViolation, msg: "duplicate key"}
		}
	}
	r.seq++
	c := customer.Customer{
		ID:        fmt.Sprintf("id-%02d", r.seq),
		Fields:    *f,
		CreatedAt: r.base.Add(time.Duration(r.seq) * time.Minute),
	}
	r.rows[c.ID] = c
	return &c, nil
}

func (r *memRepo) Update(ctx context.Context, id string, f *customer.Fields) (*customer.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("update"); err != nil {
		return nil, err
	}
	c, ok := r.rows[id]
	if !ok {
		return nil, &remoteErr{code: xerrors.CodeNoRows, msg: "no rows"}
	}
	c.Fields = *f
	r.rows[id] = c
	return &c, nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("delete"); err != nil {
		return err
	}
	if _, ok := r.rows[id]; !ok {
		return &remoteErr{code: xerrors.CodeNoRows, msg: "no rows"}
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) TouchLastViewed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.touchErr != nil {
		return r.touchErr
	}
	c := r.rows[id]
	c.LastViewedAt = &at
	r.rows[id] = c
	return nil
}

type recordingNotifier struct {
	events []wstypes.EventType
}

func (n *recordingNotifier) Publish(msg *wstypes.WSMessage) { n.events = append(n.events, msg.Type) }

func instantRetry(waits *[]time.Duration) Option {
	return WithRetryPolicy(retry.Policy{
		MaxAttempts: 4,
		Backoff:     retry.Linear(2000 * time.Millisecond),
		Retryable:   xerrors.IsRateLimited,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		},
	})
}

func validRequest(i int) *customer.CreateCustomerRequest {
	return &customer.CreateCustomerRequest{
		FirstName:    fmt.Sprintf("First%02d", i),
		LastName:     fmt.Sprintf("Last%02d", i),
		EmailAddress: fmt.Sprintf("c%02d@example.com", i),
		AddressLine1: "1 George St",
		Suburb:       "Sydney",
		Postcode:     "2000",
		State:        "NSW",
	}
}

func seed(t *testing.T, svc *CustomerService, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if _, err := svc.CreateCustomer(context.Background(), validRequest(i), "test"); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
}

func TestListCustomers_Pagination(t *testing.T) {
	repo := newMemRepo()
	svc := NewCustomerService(repo, nil, nil, zap.NewNop())
	seed(t, svc, 23)

	resp, err := svc.ListCustomers(context.Background(), &customer.CustomerListFilters{Page: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Total != 23 || resp.TotalPages != 3 || len(resp.Customers) != 10 {
		t.Fatalf("unexpected page: total=%d pages=%d rows=%d", resp.Total, resp.TotalPages, len(resp.Customers))
	}
	if resp.Customers[0].FirstName != "First23" {
		t.Fatalf("expected newest first, got %s", resp.Customers[0].FirstName)
	}

	last, _ := svc.ListCustomers(context.Background(), &customer.CustomerListFilters{Page: 3})
	if len(last.Customers) != 3 {
		t.Fatalf("expected 3 rows on the last page, got %d", len(last.Customers))
	}
}

func TestListCustomers_SearchIsCaseInsensitive(t *testing.T) {
	repo := newMemRepo()
	svc := NewCustomerService(repo, nil, nil, zap.NewNop())
	for i, name := range []string{"Smith", "Blacksmith", "Jones"} {
		req := validRequest(i)
		req.LastName = name
		if _, err := svc.CreateCustomer(context.Background(), req, "test"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	resp, err := svc.ListCustomers(context.Background(), &customer.CustomerListFilters{Search: "SMI"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Total != 2 || resp.Page != 1 {
		t.Fatalf("expected 2 matches on page 1, got %d on page %d", resp.Total, resp.Page)
	}
}

func TestCreateCustomer_RetriesRateLimit(t *testing.T) {
	repo := newMemRepo()
	repo.failNext = []error{
		&remoteErr{code: xerrors.CodeRateLimited, msg: "slow down"},
		&remoteErr{code: xerrors.CodeRateLimited, msg: "slow down"},
	}
	var waits []time.Duration
	svc := NewCustomerService(repo, nil, nil, zap.NewNop(), instantRetry(&waits))

	c, err := svc.CreateCustomer(context.Background(), validRequest(1), "test")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if repo.calls["create"] != 3 {
		t.Fatalf("expected 3 attempts, got %d", repo.calls["create"])
	}
	if len(waits) != 2 || waits[0] != 2*time.Second || waits[1] != 4*time.Second {
		t.Fatalf("unexpected waits %v", waits)
	}
	if c.Country != "Australia" {
		t.Fatalf("expected country Australia, got %q", c.Country)
	}
}

func TestCreateCustomer_GivesUpAfterThreeRetries(t *testing.T) {
	repo := newMemRepo()
	for i := 0; i < 5; i++ {
		repo.failNext = append(repo.failNext, &remoteErr{code: xerrors.CodeRateLimited})
	}
	var waits []time.Duration
	svc := NewCustomerService(repo, nil, nil, zap.NewNop(), instantRetry(&waits))

	_, err := svc.CreateCustomer(context.Background(), validRequest(1), "test")
	if !xerrors.IsRateLimited(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if repo.calls["create"] != 4 {
		t.Fatalf("expected 4 attempts, got %d", repo.calls["create"])
	}
	var total time.Duration
	for _, w := range waits {
		total += w
	}
	if total != 12*time.Second {
		t.Fatalf("expected 12s total wait, got %v", total)
	}
}

func TestCreateCustomer_DuplicateIsNotRetried(t *testing.T) {
	repo := newMemRepo()
	var waits []time.Duration
	svc := NewCustomerService(repo, nil, nil, zap.NewNop(), instantRetry(&waits))
	seed(t, svc, 1)

	_, err := svc.CreateCustomer(context.Background(), validRequest(1), "test")
	if got := xerrors.MutationMessage(xerrors.ActionAdd, err); got != "A customer with this email already exists." {
		t.Fatalf("unexpected message %q", got)
	}
	if repo.calls["create"] != 2 || len(waits) != 0 {
		t.Fatalf("duplicate must not be retried: calls=%d waits=%v", repo.calls["create"], waits)
	}
}

func TestCreateCustomer_SanitizesInput(t *testing.T) {
	repo := newMemRepo()
	svc := NewCustomerService(repo, nil, nil, zap.NewNop())

	req := validRequest(1)
	req.FirstName = "<b>Jane</b>"
	req.LastName = "<script>x</script>"
	if _, err := svc.CreateCustomer(context.Background(), req, "test"); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for markup-only last name, got %v", err)
	}

	req.LastName = "O'Brien"
	req.State = "vic"
	c, err := svc.CreateCustomer(context.Background(), req, "test")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.FirstName != "Jane" || c.State != "VIC" {
		t.Fatalf("unexpected stored fields %+v", c.Fields)
	}
}

func TestUpdateCustomer_MissingRowIsPermissionMessage(t *testing.T) {
	svc := NewCustomerService(newMemRepo(), nil, nil, zap.NewNop())
	req := &customer.UpdateCustomerRequest{
		FirstName: "A", LastName: "B", EmailAddress: "a@b.c", AddressLine1: "1 St",
		Suburb: "X", Postcode: "3000", State: "VIC",
	}
	_, err := svc.UpdateCustomer(context.Background(), "nope", req, "test")
	if got := xerrors.MutationMessage(xerrors.ActionUpdate, err); got != "You do not have permission to update customers." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestDeleteCustomer_RemovesFromNextList(t *testing.T) {
	repo := newMemRepo()
	notifier := &recordingNotifier{}
	svc := NewCustomerService(repo, nil, notifier, zap.NewNop())
	seed(t, svc, 3)

	before, _ := svc.ListCustomers(context.Background(), &customer.CustomerListFilters{})
	target := before.Customers[1].ID

	if err := svc.DeleteCustomer(context.Background(), target, "test"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	after, _ := svc.ListCustomers(context.Background(), &customer.CustomerListFilters{})
	if after.Total != before.Total-1 {
		t.Fatalf("expected total to drop by one, got %d -> %d", before.Total, after.Total)
	}
	for _, c := range after.Customers {
		if c.ID == target {
			t.Fatalf("deleted customer still listed")
		}
	}
	if last := notifier.events[len(notifier.events)-1]; last != wstypes.EventTypeCustomerDeleted {
		t.Fatalf("expected delete event, got %s", last)
	}
}

func TestGetCustomer_StampsLastViewed(t *testing.T) {
	repo := newMemRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewCustomerService(repo, nil, nil, zap.NewNop(), WithClock(func() time.Time { return now }))
	seed(t, svc, 1)

	c, err := svc.GetCustomer(context.Background(), "id-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.LastViewedAt == nil || !c.LastViewedAt.Equal(now) {
		t.Fatalf("expected last viewed %v, got %v", now, c.LastViewedAt)
	}

	repo.touchErr = errors.New("boom")
	if _, err := svc.GetCustomer(context.Background(), "id-01"); err != nil {
		t.Fatalf("touch failure must not fail the read: %v", err)
	}

	_, err = svc.GetCustomer(context.Background(), "missing")
	if got := xerrors.ViewMessage(err); got != "Customer not found. The UCID may be invalid." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestListCache_InvalidatedByMutation(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := NewListCache(kvstore.NewRedisStoreFromClient(rdb), 30*time.Second, zap.NewNop())

	repo := newMemRepo()
	svc := NewCustomerService(repo, cache, nil, zap.NewNop())
	seed(t, svc, 2)

	ctx := context.Background()
	first, _ := svc.ListCustomers(ctx, &customer.CustomerListFilters{})
	second, _ := svc.ListCustomers(ctx, &customer.CustomerListFilters{})
	if repo.calls["count"] != 1 {
		t.Fatalf("expected second list to be served from cache, count calls=%d", repo.calls["count"])
	}
	if first.Total != second.Total {
		t.Fatalf("cached page differs")
	}

	seed2 := validRequest(9)
	if _, err := svc.CreateCustomer(ctx, seed2, "test"); err != nil {
		t.Fatalf("create: %v", err)
	}
	third, _ := svc.ListCustomers(ctx, &customer.CustomerListFilters{})
	if third.Total != 3 || repo.calls["count"] != 2 {
		t.Fatalf("expected fresh read after mutation, total=%d count calls=%d", third.Total, repo.calls["count"])
	}
}

// racingRepo runs onList once, after Count and before the page is read.
type racingRepo struct {
	*memRepo
	onList func()
}

func (r *racingRepo) List(ctx context.Context, q customer.ListQuery) ([]customer.Customer, error) {
	if hook := r.onList; hook != nil {
		r.onList = nil
		hook()
	}
	return r.memRepo.List(ctx, q)
}

func TestListCache_MutationDuringListIsNotCachedAsCurrent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := NewListCache(kvstore.NewRedisStoreFromClient(rdb), 30*time.Second, zap.NewNop())

	repo := &racingRepo{memRepo: newMemRepo()}
	svc := NewCustomerService(repo, cache, nil, zap.NewNop())
	seed(t, svc, 3)

	ctx := context.Background()
	repo.onList = func() {
		if err := svc.DeleteCustomer(ctx, "id-02", "test"); err != nil {
			t.Errorf("delete: %v", err)
		}
	}

	inFlight, err := svc.ListCustomers(ctx, &customer.CustomerListFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if inFlight.Total != 3 {
		t.Fatalf("expected the in-flight page to be counted before the delete, got total=%d", inFlight.Total)
	}

	after, err := svc.ListCustomers(ctx, &customer.CustomerListFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if after.Total != 2 || len(after.Customers) != 2 {
		t.Fatalf("expected the list after the delete to show 2 rows, got total=%d rows=%d", after.Total, len(after.Customers))
	}
	for _, c := range after.Customers {
		if c.ID == "id-02" {
			t.Fatalf("deleted customer still listed")
		}
	}
}

func TestCreateCustomer_SucceedsOnFourthAttempt(t *testing.T) {
	repo := newMemRepo()
	for i := 0; i < 3; i++ {
		repo.failNext = append(repo.failNext, &remoteErr{code: xerrors.CodeRateLimited, msg: "slow down"})
	}
	notifier := &recordingNotifier{}
	var waits []time.Duration
	svc := NewCustomerService(repo, nil, notifier, zap.NewNop(), instantRetry(&waits))

	if _, err := svc.CreateCustomer(context.Background(), validRequest(1), "test"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if repo.calls["create"] != 4 {
		t.Fatalf("expected 4 attempts, got %d", repo.calls["create"])
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("expected waits %v, got %v", want, waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("expected waits %v, got %v", want, waits)
		}
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected exactly one stored customer, got %d", len(repo.rows))
	}
	if len(notifier.events) != 1 || notifier.events[0] != wstypes.EventTypeCustomerCreated {
		t.Fatalf("expected one created event, got %v", notifier.events)
	}
}
