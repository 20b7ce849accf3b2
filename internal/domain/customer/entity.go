// internal/domain/customer/entity.go
package customer

import "time"

// Country is the only country customers are registered in.
const Country = "Australia"

// PageSize is the fixed number of customers per list page.
const PageSize = 10

// Fields are the editable columns of a customer record.
type Fields struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	PhoneNumber  *string `json:"phone_number"`
	EmailAddress string  `json:"email_address"`
	AddressLine1 string  `json:"address_line_1"`
	AddressLine2 *string `json:"address_line_2"`
	Suburb       string  `json:"suburb"`
	Postcode     string  `json:"postcode"`
	State        string  `json:"state"`
	Country      string  `json:"country"`
	ActiveStatus bool    `json:"active_status"`
}

// Customer is a stored customer record. ID and CreatedAt are assigned by the
// data service and never change.
type Customer struct {
	ID string `json:"id"`
	Fields
	LastViewedAt *time.Time `json:"last_viewed_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}
