// internal/domain/customer/repository.go
package customer

import (
	"context"
	"time"
)

// ListQuery is a filtered slice of the customer table ordered by created_at
// descending.
type ListQuery struct {
	Search string
	Offset int
	Limit  int
}

// Repository is the data service seen from the customer service.
type Repository interface {
	Count(ctx context.Context, search string) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	List(ctx context.Context, q ListQuery) ([]Customer, error)
	FindByID(ctx context.Context, id string) (*Customer, error)
	Create(ctx context.Context, f *Fields) (*Customer, error)
	Update(ctx context.Context, id string, f *Fields) (*Customer, error)
	Delete(ctx context.Context, id string) error
	TouchLastViewed(ctx context.Context, id string, at time.Time) error
}
