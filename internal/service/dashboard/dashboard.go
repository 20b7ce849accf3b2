// internal/service/dashboard/dashboard.go
package dashboard

import (
	"context"
	"fmt"

	"luckylogic-crm/internal/domain/customer"
	"luckylogic-crm/internal/domain/dashboard"

	"go.uber.org/zap"
)

const recentCustomers = 5

type DashboardService struct {
	repo   customer.Repository
	logger *zap.Logger
}

// NewDashboardService builds the summary from the customer repository.
func NewDashboardService(repo customer.Repository, logger *zap.Logger) *DashboardService {
	return &DashboardService{repo: repo, logger: logger}
}

// GetSummary returns totals and the most recent customers.
func (s *DashboardService) GetSummary(ctx context.Context) (*dashboard.Summary, error) {
	total, err := s.repo.Count(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	active, err := s.repo.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count active customers: %w", err)
	}

	recent, err := s.repo.List(ctx, customer.ListQuery{Limit: recentCustomers})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent customers: %w", err)
	}
	if recent == nil {
		recent = []customer.Customer{}
	}

	return &dashboard.Summary{
		TotalCustomers:  total,
		ActiveCustomers: active,
		RecentCustomers: recent,
	}, nil
}
