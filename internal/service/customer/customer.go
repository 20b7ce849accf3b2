// internal/service/customer/customer.go
package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"luckylogic-crm/internal/domain/customer"
	wstypes "luckylogic-crm/internal/domain/websocket"
	xerrors "luckylogic-crm/internal/pkg/errors"
	"luckylogic-crm/internal/pkg/retry"
	"luckylogic-crm/internal/pkg/sanitize"

	"go.uber.org/zap"
)

// Notifier receives an event after every successful mutation.
type Notifier interface {
	Publish(msg *wstypes.WSMessage)
}

type CustomerService struct {
	repo     customer.Repository
	cache    *ListCache
	notifier Notifier
	retry    retry.Policy
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*CustomerService)

// WithRetryPolicy replaces the write retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *CustomerService) { s.retry = p }
}

// WithClock overrides the time source for last_viewed_at.
func WithClock(now func() time.Time) Option {
	return func(s *CustomerService) { s.now = now }
}

// DefaultRetryPolicy retries rate-limited writes up to three times, waiting
// 2s, 4s and 6s.
func DefaultRetryPolicy(logger *zap.Logger) retry.Policy {
	return retry.Policy{
		MaxAttempts: 4,
		Backoff:     retry.Linear(2000 * time.Millisecond),
		Retryable:   xerrors.IsRateLimited,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			logger.Warn("data service rate limited, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		},
	}
}

// NewCustomerService wires the service. cache and notifier may be nil.
func NewCustomerService(repo customer.Repository, cache *ListCache, notifier Notifier, logger *zap.Logger, opts ...Option) *CustomerService {
	s := &CustomerService{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		retry:    DefaultRetryPolicy(logger),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListCustomers returns one page of customers, newest first.
func (s *CustomerService) ListCustomers(ctx context.Context, filters *customer.CustomerListFilters) (*customer.CustomerListResponse, error) {
	page := filters.Page
	if page < 1 {
		page = 1
	}
	search := strings.TrimSpace(filters.Search)

	key, cacheable := s.cache.PageKey(ctx, search, page)
	if cacheable {
		if cached, ok := s.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	total, err := s.repo.Count(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	rows, err := s.repo.List(ctx, customer.ListQuery{
		Search: search,
		Offset: (page - 1) * customer.PageSize,
		Limit:  customer.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	if rows == nil {
		rows = []customer.Customer{}
	}

	resp := &customer.CustomerListResponse{
		Customers:  rows,
		Total:      total,
		Page:       page,
		PageSize:   customer.PageSize,
		TotalPages: customer.TotalPages(total, customer.PageSize),
	}
	if cacheable {
		s.cache.Put(ctx, key, resp)
	}
	return resp, nil
}

// GetCustomer loads one customer and stamps last_viewed_at. A failed stamp
// is logged, not returned.
func (s *CustomerService) GetCustomer(ctx context.Context, id string) (*customer.Customer, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	now := s.now()
	if err := s.repo.TouchLastViewed(ctx, id, now); err != nil {
		s.logger.Warn("failed to update last viewed", zap.String("customer_id", id), zap.Error(err))
	} else {
		c.LastViewedAt = &now
	}
	return c, nil
}

// CreateCustomer sanitizes and validates the request, then inserts it,
// retrying while the data service is rate limited.
func (s *CustomerService) CreateCustomer(ctx context.Context, req *customer.CreateCustomerRequest, actor string) (*customer.Customer, error) {
	active := true
	if req.ActiveStatus != nil {
		active = *req.ActiveStatus
	}
	f := buildFields(req.FirstName, req.LastName, req.PhoneNumber, req.EmailAddress,
		req.AddressLine1, req.AddressLine2, req.Suburb, req.Postcode, req.State, active)
	if err := validateFields(f); err != nil {
		return nil, err
	}

	c, err := retry.Do(ctx, s.retry, func(ctx context.Context) (*customer.Customer, error) {
		return s.repo.Create(ctx, f)
	})
	if err != nil {
		s.logger.Error("failed to create customer", zap.String("code", xerrors.Code(err)), zap.Error(err))
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.logger.Info("customer created",
		zap.String("customer_id", c.ID),
		zap.String("actor", actor),
	)
	s.afterMutation(ctx, wstypes.EventTypeCustomerCreated, c.ID, c, actor)
	return c, nil
}

// UpdateCustomer writes every editable field of the customer.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id string, req *customer.UpdateCustomerRequest, actor string) (*customer.Customer, error) {
	f := buildFields(req.FirstName, req.LastName, req.PhoneNumber, req.EmailAddress,
		req.AddressLine1, req.AddressLine2, req.Suburb, req.Postcode, req.State, req.ActiveStatus)
	if err := validateFields(f); err != nil {
		return nil, err
	}

	c, err := retry.Do(ctx, s.retry, func(ctx context.Context) (*customer.Customer, error) {
		return s.repo.Update(ctx, id, f)
	})
	if err != nil {
		s.logger.Error("failed to update customer",
			zap.String("customer_id", id),
			zap.String("code", xerrors.Code(err)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}

	s.logger.Info("customer updated", zap.String("customer_id", id), zap.String("actor", actor))
	s.afterMutation(ctx, wstypes.EventTypeCustomerUpdated, id, c, actor)
	return c, nil
}

// DeleteCustomer removes the customer and announces it on the feed.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id, actor string) error {
	_, err := retry.Do(ctx, s.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("failed to delete customer",
			zap.String("customer_id", id),
			zap.String("code", xerrors.Code(err)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	s.logger.Info("customer deleted", zap.String("customer_id", id), zap.String("actor", actor))
	s.afterMutation(ctx, wstypes.EventTypeCustomerDeleted, id, nil, actor)
	return nil
}

func (s *CustomerService) afterMutation(ctx context.Context, event wstypes.EventType, id string, c *customer.Customer, actor string) {
	s.cache.Invalidate(ctx)

	if s.notifier == nil {
		return
	}
	data := wstypes.CustomerEventData{CustomerID: id, Actor: actor}
	if c != nil {
		data.Name = c.FullName()
		data.Customer = c
	}
	s.notifier.Publish(wstypes.NewMessage(event, data))
}

func buildFields(first, last string, phone *string, email, addr1 string, addr2 *string, suburb, postcode, state string, active bool) *customer.Fields {
	return &customer.Fields{
		FirstName:    sanitize.Text(first),
		LastName:     sanitize.Text(last),
		PhoneNumber:  sanitize.OptionalText(phone),
		EmailAddress: strings.ToLower(sanitize.Text(email)),
		AddressLine1: sanitize.Text(addr1),
		AddressLine2: sanitize.OptionalText(addr2),
		Suburb:       sanitize.Text(suburb),
		Postcode:     sanitize.Text(postcode),
		State:        strings.ToUpper(sanitize.Text(state)),
		Country:      customer.Country,
		ActiveStatus: active,
	}
}

// validateFields runs after sanitizing, so markup-only input counts as empty.
func validateFields(f *customer.Fields) error {
	required := []struct{ name, value string }{
		{"first_name", f.FirstName},
		{"last_name", f.LastName},
		{"email_address", f.EmailAddress},
		{"address_line_1", f.AddressLine1},
		{"suburb", f.Suburb},
		{"postcode", f.Postcode},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is required", xerrors.ErrInvalidInput, r.name)
		}
	}
	if !customer.ValidState(f.State) {
		return fmt.Errorf("%w: unknown state %q", xerrors.ErrInvalidInput, f.State)
	}
	return nil
}
