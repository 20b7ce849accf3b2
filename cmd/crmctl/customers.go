package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"luckylogic-crm/internal/client"
	"luckylogic-crm/internal/domain/customer"
	wstypes "luckylogic-crm/internal/domain/websocket"
)

func (a *app) customers(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("customers needs a subcommand: list, view, add, edit, delete, browse, watch")
	}

	rest := args[1:]
	switch args[0] {
	case "list":
		return a.listCustomers(ctx, rest)
	case "view":
		return a.viewCustomer(ctx, rest)
	case "add":
		return a.addCustomer(ctx, rest)
	case "edit":
		return a.editCustomer(ctx, rest)
	case "delete":
		return a.deleteCustomer(ctx, rest)
	case "browse":
		return a.browseCustomers(ctx, rest)
	case "watch":
		return a.watchCustomers(ctx)
	default:
		return fmt.Errorf("unknown customers subcommand %q", args[0])
	}
}

func (a *app) listCustomers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("customers list", flag.ContinueOnError)
	search := fs.String("search", "", "filter by first or last name")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := a.api.ListCustomers(ctx, *search, *page)
	if err != nil {
		return err
	}
	printCustomerPage(a.out, resp.Customers, resp.Page, resp.TotalPages, resp.Total)
	return nil
}

func (a *app) viewCustomer(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: customers view ID")
	}
	c, err := a.api.GetCustomer(ctx, args[0])
	if err != nil {
		return err
	}
	printCustomer(a.out, c)
	return nil
}

// fieldFlags registers one flag per editable field, defaulting to cur.
func fieldFlags(fs *flag.FlagSet, cur *customer.Fields) func() *customer.Fields {
	first := fs.String("first", cur.FirstName, "first name")
	last := fs.String("last", cur.LastName, "last name")
	phone := fs.String("phone", deref(cur.PhoneNumber), "phone number")
	email := fs.String("email", cur.EmailAddress, "email address")
	addr1 := fs.String("address1", cur.AddressLine1, "address line 1")
	addr2 := fs.String("address2", deref(cur.AddressLine2), "address line 2")
	suburb := fs.String("suburb", cur.Suburb, "suburb")
	postcode := fs.String("postcode", cur.Postcode, "4-digit postcode")
	state := fs.String("state", cur.State, "state code: "+strings.Join(customer.States, ", "))
	active := fs.Bool("active", cur.ActiveStatus, "active status")

	return func() *customer.Fields {
		return &customer.Fields{
			FirstName:    *first,
			LastName:     *last,
			PhoneNumber:  optional(*phone),
			EmailAddress: *email,
			AddressLine1: *addr1,
			AddressLine2: optional(*addr2),
			Suburb:       *suburb,
			Postcode:     *postcode,
			State:        strings.ToUpper(*state),
			ActiveStatus: *active,
		}
	}
}

func (a *app) addCustomer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("customers add", flag.ContinueOnError)
	fields := fieldFlags(fs, &customer.Fields{ActiveStatus: true})
	if err := fs.Parse(args); err != nil {
		return err
	}

	f := fields()
	c, msg, err := a.api.CreateCustomer(ctx, &customer.CreateCustomerRequest{
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		PhoneNumber:  f.PhoneNumber,
		EmailAddress: f.EmailAddress,
		AddressLine1: f.AddressLine1,
		AddressLine2: f.AddressLine2,
		Suburb:       f.Suburb,
		Postcode:     f.Postcode,
		State:        f.State,
		ActiveStatus: &f.ActiveStatus,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (UCID %s)\n", msg, c.ID)
	return nil
}

func (a *app) editCustomer(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: customers edit ID [field flags]")
	}
	id := args[0]

	cur, err := a.api.GetCustomer(ctx, id)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("customers edit", flag.ContinueOnError)
	fields := fieldFlags(fs, &cur.Fields)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	f := fields()
	_, msg, err := a.api.UpdateCustomer(ctx, id, &customer.UpdateCustomerRequest{
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		PhoneNumber:  f.PhoneNumber,
		EmailAddress: f.EmailAddress,
		AddressLine1: f.AddressLine1,
		AddressLine2: f.AddressLine2,
		Suburb:       f.Suburb,
		Postcode:     f.Postcode,
		State:        f.State,
		ActiveStatus: f.ActiveStatus,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) deleteCustomer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("customers delete", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if len(args) < 1 {
		return errors.New("usage: customers delete ID [-yes]")
	}
	id := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	if !*yes {
		c, err := a.api.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		if !a.confirm(fmt.Sprintf("Delete %s? This cannot be undone.", c.FullName())) {
			fmt.Fprintln(a.out, "Cancelled.")
			return nil
		}
	}

	msg, err := a.api.DeleteCustomer(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

// browseCustomers runs an interactive list. Typing /text filters by name,
// n and p page, r reloads and q quits. The list reloads on realtime events.
func (a *app) browseCustomers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("customers browse", flag.ContinueOnError)
	search := fs.String("search", "", "initial filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	show := func(s client.ListState) {
		mu.Lock()
		defer mu.Unlock()
		if s.Err != nil {
			fmt.Fprintln(a.out, "Error:", client.UserMessage(s.Err))
			return
		}
		if s.Search != "" {
			fmt.Fprintf(a.out, "Filter: %q\n", s.Search)
		}
		printCustomerPage(a.out, s.Customers, s.Page, s.TotalPages, s.Total)
		fmt.Fprint(a.out, "[n]ext [p]rev /filter [r]eload [q]uit > ")
	}

	view := client.NewListView(a.api, client.OnUpdate(show))
	defer view.Close()

	if *search != "" {
		view.SetFilter(ctx, *search)
	} else {
		view.Refresh(ctx)
	}

	go func() {
		err := a.api.Watch(ctx, func(m *wstypes.WSMessage) {
			switch m.Type {
			case wstypes.EventTypeCustomerCreated, wstypes.EventTypeCustomerUpdated, wstypes.EventTypeCustomerDeleted:
				mu.Lock()
				fmt.Fprintf(a.out, "\n* %s\n", describeEvent(m))
				mu.Unlock()
				view.Refresh(ctx)
			}
		})
		if err != nil {
			a.logger.Debug("realtime feed unavailable, list will not auto-refresh")
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := a.in.ReadString('\n')
			if err != nil {
				return
			}
			lines <- strings.TrimSpace(line)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch {
			case line == "q":
				return nil
			case line == "n":
				view.Next(ctx)
			case line == "p":
				view.Prev(ctx)
			case line == "r" || line == "":
				view.Refresh(ctx)
			case strings.HasPrefix(line, "/"):
				view.SetFilter(ctx, strings.TrimPrefix(line, "/"))
			default:
				if n, err := strconv.Atoi(line); err == nil {
					view.GoTo(ctx, n)
				} else {
					fmt.Fprint(a.out, "? ")
				}
			}
		}
	}
}

func (a *app) watchCustomers(ctx context.Context) error {
	fmt.Fprintln(a.out, "Watching customer changes, press Ctrl+C to stop.")
	return a.api.Watch(ctx, func(m *wstypes.WSMessage) {
		fmt.Fprintf(a.out, "%s  %s\n", m.Timestamp.Local().Format("15:04:05"), describeEvent(m))
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
