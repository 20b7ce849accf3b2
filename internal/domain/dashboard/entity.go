// internal/domain/dashboard/entity.go
package dashboard

import "luckylogic-crm/internal/domain/customer"

// Summary is the dashboard's aggregate view. Jobs, leads and revenue are not
// tracked yet and are always zero.
type Summary struct {
	TotalCustomers  int64               `json:"total_customers"`
	ActiveCustomers int64               `json:"active_customers"`
	ActiveJobs      int64               `json:"active_jobs"`
	Leads           int64               `json:"leads"`
	Revenue         float64             `json:"revenue"`
	RecentCustomers []customer.Customer `json:"recent_customers"`
}
