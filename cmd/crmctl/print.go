package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"luckylogic-crm/internal/domain/customer"
	"luckylogic-crm/internal/domain/dashboard"
	wstypes "luckylogic-crm/internal/domain/websocket"
)

func printCustomerPage(out io.Writer, rows []customer.Customer, page, totalPages int, total int64) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No customers found.")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UCID\tNAME\tEMAIL\tSUBURB\tSTATE\tACTIVE")
	for _, c := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.FullName(), c.EmailAddress, c.Suburb, c.State, yesNo(c.ActiveStatus))
	}
	tw.Flush()
	fmt.Fprintf(out, "Page %d of %d (%d customers)\n", page, max(totalPages, 1), total)
}

func printCustomer(out io.Writer, c *customer.Customer) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "UCID\t%s\n", c.ID)
	fmt.Fprintf(tw, "Name\t%s\n", c.FullName())
	fmt.Fprintf(tw, "Email\t%s\n", c.EmailAddress)
	fmt.Fprintf(tw, "Phone\t%s\n", deref(c.PhoneNumber))
	fmt.Fprintf(tw, "Address\t%s\n", c.AddressLine1)
	if c.AddressLine2 != nil {
		fmt.Fprintf(tw, "\t%s\n", *c.AddressLine2)
	}
	fmt.Fprintf(tw, "\t%s %s %s\n", c.Suburb, c.State, c.Postcode)
	fmt.Fprintf(tw, "Country\t%s\n", c.Country)
	fmt.Fprintf(tw, "Active\t%s\n", yesNo(c.ActiveStatus))
	fmt.Fprintf(tw, "Created\t%s\n", c.CreatedAt.Local().Format("2 Jan 2006 15:04"))
	if c.LastViewedAt != nil {
		fmt.Fprintf(tw, "Last viewed\t%s\n", c.LastViewedAt.Local().Format("2 Jan 2006 15:04"))
	}
	tw.Flush()
}

func printSummary(out io.Writer, s *dashboard.Summary) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total customers\t%d\n", s.TotalCustomers)
	fmt.Fprintf(tw, "Active customers\t%d\n", s.ActiveCustomers)
	fmt.Fprintf(tw, "Active jobs\t%d\n", s.ActiveJobs)
	fmt.Fprintf(tw, "Leads\t%d\n", s.Leads)
	fmt.Fprintf(tw, "Revenue\t$%.2f\n", s.Revenue)
	tw.Flush()

	if len(s.RecentCustomers) > 0 {
		fmt.Fprintln(out, "\nRecent customers:")
		printCustomerPage(out, s.RecentCustomers, 1, 1, int64(len(s.RecentCustomers)))
	}
}

func describeEvent(m *wstypes.WSMessage) string {
	data, _ := m.Data.(map[string]interface{})
	name, _ := data["name"].(string)
	id, _ := data["customer_id"].(string)
	actor, _ := data["actor"].(string)

	var verb string
	switch m.Type {
	case wstypes.EventTypeCustomerCreated:
		verb = "added"
	case wstypes.EventTypeCustomerUpdated:
		verb = "updated"
	case wstypes.EventTypeCustomerDeleted:
		verb = "deleted"
	default:
		return string(m.Type)
	}

	subject := id
	if name != "" {
		subject = fmt.Sprintf("%s (%s)", name, id)
	}
	if actor != "" {
		return fmt.Sprintf("customer %s %s by %s", subject, verb, actor)
	}
	return fmt.Sprintf("customer %s %s", subject, verb)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
