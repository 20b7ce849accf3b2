// internal/client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"luckylogic-crm/internal/domain/auth"
	"luckylogic-crm/internal/domain/customer"
	"luckylogic-crm/internal/domain/dashboard"
	xerrors "luckylogic-crm/internal/pkg/errors"
	"luckylogic-crm/internal/pkg/retry"

	"go.uber.org/zap"
)

// APIError is a non-2xx reply from the API.
type APIError struct {
	Status  int
	Message string
	Detail  string
	wait    time.Duration
	gate    bool
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// RetryAfter is the server's Retry-After, zero when absent.
func (e *APIError) RetryAfter() time.Duration { return e.wait }

// IsRateLimited reports any 429: the request gate, the login limiter or the
// data service after the API's own retries.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests
}

// IsGateRejection reports a 429 from the per-IP request gate. The gate
// answers in plain text; every other 429 carries the JSON envelope.
func IsGateRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests && apiErr.gate
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// maxGateWait bounds how long a Retry-After from the gate may stall a retry.
const maxGateWait = 30 * time.Second

// DefaultRetryPolicy retries gate rejections up to three times, waiting
// 2000ms × attempt or the gate's Retry-After, whichever is longer.
func DefaultRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 4,
		Backoff:     retry.Linear(2000 * time.Millisecond),
		MaxHint:     maxGateWait,
		Retryable:   IsGateRejection,
	}
}

// Client talks to the CRM API. Only customer writes are retried; reads and
// auth calls report a 429 straight away.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
	retry   retry.Policy
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// New returns a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   DefaultRetryPolicy(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = func(attempt int, wait time.Duration, err error) {
			c.logger.Debug("rate limited, retrying", zap.Int("attempt", attempt), zap.Duration("wait", wait))
		}
	}
	return c, nil
}

func (c *Client) Token() string { return c.token }

func (c *Client) SetToken(token string) { c.token = token }

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Login signs in and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.LoginResponse, error) {
	var out auth.LoginResponse
	body := auth.LoginRequest{Email: email, Password: password}
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	c.token = out.AccessToken
	return &out, nil
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, nil)
	return err
}

// Me returns the current session.
func (c *Client) Me(ctx context.Context) (*auth.Session, error) {
	var out auth.Session
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dashboard returns the dashboard summary.
func (c *Client) Dashboard(ctx context.Context) (*dashboard.Summary, error) {
	var out dashboard.Summary
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/dashboard", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCustomers fetches one page. An empty search matches everyone.
func (c *Client) ListCustomers(ctx context.Context, search string, page int) (*customer.CustomerListResponse, error) {
	q := url.Values{}
	if search = strings.TrimSpace(search); search != "" {
		q.Set("search", search)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}

	var out customer.CustomerListResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/customers", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*customer.Customer, error) {
	var out customer.Customer
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/customers/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCustomer returns the stored record and the server's notification text.
func (c *Client) CreateCustomer(ctx context.Context, req *customer.CreateCustomerRequest) (*customer.Customer, string, error) {
	var out customer.Customer
	msg, err := c.mutate(ctx, http.MethodPost, "/api/v1/customers", req, &out)
	if err != nil {
		return nil, "", err
	}
	return &out, msg, nil
}

// UpdateCustomer returns the stored record and the server's notification text.
func (c *Client) UpdateCustomer(ctx context.Context, id string, req *customer.UpdateCustomerRequest) (*customer.Customer, string, error) {
	var out customer.Customer
	msg, err := c.mutate(ctx, http.MethodPut, "/api/v1/customers/"+url.PathEscape(id), req, &out)
	if err != nil {
		return nil, "", err
	}
	return &out, msg, nil
}

// DeleteCustomer returns the server's notification text.
func (c *Client) DeleteCustomer(ctx context.Context, id string) (string, error) {
	return c.mutate(ctx, http.MethodDelete, "/api/v1/customers/"+url.PathEscape(id), nil, nil)
}

// do sends the request once and decodes the envelope's data into out. It
// returns the envelope message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (string, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return "", err
	}
	env, err := c.send(ctx, method, path, query, payload)
	if err != nil {
		return "", err
	}
	return decodeData(env, out)
}

// mutate is do for customer writes: gate rejections are retried under the
// client's policy.
func (c *Client) mutate(ctx context.Context, method, path string, body, out interface{}) (string, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return "", err
	}
	env, err := retry.Do(ctx, c.retry, func(ctx context.Context) (*envelope, error) {
		return c.send(ctx, method, path, nil, payload)
	})
	if err != nil {
		return "", err
	}
	return decodeData(env, out)
}

func encodeBody(body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return b, nil
}

func decodeData(env *envelope, out interface{}) (string, error) {
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return env.Message, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte) (*envelope, error) {
	u := c.BaseURL()
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", xerrors.ErrUnreachable, xerrors.MsgConnection)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnreachable, err)
	}

	var env envelope
	jsonErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Message, Detail: env.Error}
		if jsonErr != nil {
			apiErr.Message = strings.TrimSpace(string(raw))
			if resp.StatusCode == http.StatusTooManyRequests {
				apiErr.gate = true
				apiErr.Message = xerrors.MsgTooManyRequests
			}
		}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.wait = time.Duration(secs) * time.Second
		}
		return nil, apiErr
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", jsonErr)
	}
	return &env, nil
}

// UserMessage is the text to show an operator for a failed call.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case errors.Is(err, xerrors.ErrUnreachable):
		return xerrors.MsgConnection
	default:
		return err.Error()
	}
}
