package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"luckylogic-crm/internal/client"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `Usage: crmctl [-api URL] [-v] <command> [args]

Commands:
  login [-email EMAIL]          sign in (password from CRMCTL_PASSWORD or prompt)
  logout                        end the current session
  whoami                        show the current session
  dashboard                     show customer counters and recent customers
  customers list [-search S] [-page N]
  customers view ID
  customers add [field flags]
  customers edit ID [field flags]
  customers delete ID [-yes]
  customers browse [-search S]  interactive list (n, p, /filter, r, q)
  customers watch               print realtime customer events
`

type app struct {
	api    *client.Client
	tokens *client.TokenFile
	in     *bufio.Reader
	out    io.Writer
	logger *zap.Logger
}

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api", envOr("CRM_API_URL", "http://localhost:8000"), "CRM API base URL")
	verbose := flag.Bool("v", false, "log HTTP retries and debug output")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *apiURL, logger, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", client.UserMessage(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, apiURL string, logger *zap.Logger, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("no command given")
	}

	tokens, err := client.DefaultTokenFile()
	if err != nil {
		return err
	}
	token, err := tokens.Load()
	if err != nil {
		return err
	}
	api, err := client.New(apiURL, client.WithToken(token), client.WithLogger(logger))
	if err != nil {
		return err
	}

	a := &app{api: api, tokens: tokens, in: bufio.NewReader(os.Stdin), out: os.Stdout, logger: logger}

	switch args[0] {
	case "login":
		return a.login(ctx, args[1:])
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "dashboard":
		return a.dashboard(ctx)
	case "customers":
		return a.customers(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", os.Getenv("CRMCTL_EMAIL"), "admin email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		*email = a.prompt("Email: ")
	}
	password := os.Getenv("CRMCTL_PASSWORD")
	if password == "" {
		password = a.prompt("Password: ")
	}

	resp, err := a.api.Login(ctx, *email, password)
	if err != nil {
		return err
	}
	if err := a.tokens.Save(resp.AccessToken); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s (session expires %s)\n", resp.User.Email, resp.ExpiresAt.Local().Format("2 Jan 2006 15:04"))
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if a.api.Token() == "" {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	if err := a.api.Logout(ctx); err != nil {
		a.logger.Debug("logout request failed", zap.Error(err))
	}
	if err := a.tokens.Delete(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	sess, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s) signed in %s from %s\n",
		sess.Email, strings.Join(sess.Roles, ","), sess.LoginAt.Local().Format("2 Jan 2006 15:04"), sess.IPAddress)
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	s, err := a.api.Dashboard(ctx)
	if err != nil {
		return err
	}
	printSummary(a.out, s)
	return nil
}

func (a *app) prompt(label string) string {
	fmt.Fprint(a.out, label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (a *app) confirm(question string) bool {
	answer := strings.ToLower(a.prompt(question + " [y/N]: "))
	return answer == "y" || answer == "yes"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
