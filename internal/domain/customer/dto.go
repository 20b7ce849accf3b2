// internal/domain/customer/dto.go
package customer

// CreateCustomerRequest is the payload for adding a customer.
type CreateCustomerRequest struct {
	FirstName    string  `json:"first_name" binding:"required,max=100"`
	LastName     string  `json:"last_name" binding:"required,max=100"`
	PhoneNumber  *string `json:"phone_number" binding:"omitempty,max=30"`
	EmailAddress string  `json:"email_address" binding:"required,email"`
	AddressLine1 string  `json:"address_line_1" binding:"required,max=200"`
	AddressLine2 *string `json:"address_line_2" binding:"omitempty,max=200"`
	Suburb       string  `json:"suburb" binding:"required,max=100"`
	Postcode     string  `json:"postcode" binding:"required,numeric,len=4"`
	State        string  `json:"state" binding:"required,oneof=ACT NSW NT QLD SA TAS VIC WA"`
	ActiveStatus *bool   `json:"active_status"`
}

// UpdateCustomerRequest carries every editable field. id and created_at are
// never part of it.
type UpdateCustomerRequest struct {
	FirstName    string  `json:"first_name" binding:"required,max=100"`
	LastName     string  `json:"last_name" binding:"required,max=100"`
	PhoneNumber  *string `json:"phone_number" binding:"omitempty,max=30"`
	EmailAddress string  `json:"email_address" binding:"required,email"`
	AddressLine1 string  `json:"address_line_1" binding:"required,max=200"`
	AddressLine2 *string `json:"address_line_2" binding:"omitempty,max=200"`
	Suburb       string  `json:"suburb" binding:"required,max=100"`
	Postcode     string  `json:"postcode" binding:"required,numeric,len=4"`
	State        string  `json:"state" binding:"required,oneof=ACT NSW NT QLD SA TAS VIC WA"`
	ActiveStatus bool    `json:"active_status"`
}

// CustomerListFilters selects one page of customers.
type CustomerListFilters struct {
	Search string `form:"search"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
}

// CustomerListResponse is one page of customers.
type CustomerListResponse struct {
	Customers  []Customer `json:"customers"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// TotalPages is ceil(total / pageSize).
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
