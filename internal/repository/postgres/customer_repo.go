// internal/repository/postgres/customer_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"luckylogic-crm/internal/domain/customer"
	xerrors "luckylogic-crm/internal/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const customerColumns = `id, first_name, last_name, phone_number, email_address,
	address_line_1, address_line_2, suburb, postcode, state, country,
	active_status, last_viewed_at, created_at`

type CustomerRepository struct {
	db *pgxpool.Pool
}

// NewCustomerRepository reads and writes the customers table through pgx.
func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

var _ customer.Repository = (*CustomerRepository)(nil)

// Count counts customers whose first or last name contains search,
// ignoring case.
func (r *CustomerRepository) Count(ctx context.Context, search string) (int64, error) {
	where, args := searchClause(search, 1)
	var total int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers"+where, args...).Scan(&total)
	if err != nil {
		return 0, translate("count customers", err)
	}
	return total, nil
}

// CountActive counts customers with active_status set.
func (r *CustomerRepository) CountActive(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers WHERE active_status").Scan(&total)
	if err != nil {
		return 0, translate("count active customers", err)
	}
	return total, nil
}

// List returns one page of matching customers, newest first.
func (r *CustomerRepository) List(ctx context.Context, q customer.ListQuery) ([]customer.Customer, error) {
	where, args := searchClause(q.Search, 1)
	argPos := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM customers%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, customerColumns, where, argPos, argPos+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list customers", err)
	}
	defer rows.Close()

	var out []customer.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, translate("scan customer", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list customers", err)
	}
	return out, nil
}

// FindByID loads one customer. A missing row is ErrNotFound.
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*customer.Customer, error) {
	row := r.db.QueryRow(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = $1", id)
	c, err := scanCustomer(row)
	if err != nil {
		return nil, translate("find customer", err)
	}
	return c, nil
}

// Create inserts a customer and returns the stored row.
func (r *CustomerRepository) Create(ctx context.Context, f *customer.Fields) (*customer.Customer, error) {
	query := `
		INSERT INTO customers (
			id, first_name, last_name, phone_number, email_address,
			address_line_1, address_line_2, suburb, postcode, state, country,
			active_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + customerColumns

	row := r.db.QueryRow(ctx, query,
		uuid.New(), f.FirstName, f.LastName, f.PhoneNumber, f.EmailAddress,
		f.AddressLine1, f.AddressLine2, f.Suburb, f.Postcode, f.State, f.Country,
		f.ActiveStatus,
	)
	c, err := scanCustomer(row)
	if err != nil {
		return nil, translate("create customer", err)
	}
	return c, nil
}

// Update overwrites the editable fields. No matched row is reported as
// PGRST116.
func (r *CustomerRepository) Update(ctx context.Context, id string, f *customer.Fields) (*customer.Customer, error) {
	query := `
		UPDATE customers SET
			first_name = $2, last_name = $3, phone_number = $4, email_address = $5,
			address_line_1 = $6, address_line_2 = $7, suburb = $8, postcode = $9,
			state = $10, country = $11, active_status = $12
		WHERE id = $1
		RETURNING ` + customerColumns

	row := r.db.QueryRow(ctx, query,
		id, f.FirstName, f.LastName, f.PhoneNumber, f.EmailAddress,
		f.AddressLine1, f.AddressLine2, f.Suburb, f.Postcode, f.State, f.Country,
		f.ActiveStatus,
	)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &Error{Code: xerrors.CodeNoRows, Message: "update affected no rows"}
	}
	if err != nil {
		return nil, translate("update customer", err)
	}
	return c, nil
}

// Delete removes one customer. No deleted row is reported as PGRST116.
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM customers WHERE id = $1", id)
	if err != nil {
		return translate("delete customer", err)
	}
	if tag.RowsAffected() == 0 {
		return &Error{Code: xerrors.CodeNoRows, Message: "delete affected no rows"}
	}
	return nil
}

// TouchLastViewed stamps last_viewed_at.
func (r *CustomerRepository) TouchLastViewed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, "UPDATE customers SET last_viewed_at = $2 WHERE id = $1", id, at.UTC())
	return translate("update last viewed", err)
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.PhoneNumber, &c.EmailAddress,
		&c.AddressLine1, &c.AddressLine2, &c.Suburb, &c.Postcode, &c.State, &c.Country,
		&c.ActiveStatus, &c.LastViewedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// searchClause builds a case-insensitive name filter starting at $argPos.
func searchClause(search string, argPos int) (string, []interface{}) {
	search = strings.TrimSpace(search)
	if search == "" {
		return "", nil
	}
	return fmt.Sprintf(" WHERE (first_name ILIKE $%d OR last_name ILIKE $%d)", argPos, argPos),
		[]interface{}{"%" + escapeLike(search) + "%"}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
