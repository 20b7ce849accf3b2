// internal/kvstore/rest.go
package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RESTStore speaks the Upstash REST protocol: each command is POSTed as a
// JSON array and answered with {"result": ...} or {"error": "..."}.
type RESTStore struct {
	baseURL string
	token   string
	http    *http.Client
}

type restReply struct {
	Result interface{} `json:"result"`
	Error  string      `json:"error,omitempty"`
}

// CommandError is an error reported by the server for a single command.
type CommandError struct {
	Message string
}

// Error returns the message Upstash sent for the failed command.
func (e *CommandError) Error() string { return e.Message }

// NewRESTStore talks to an Upstash REST endpoint. A nil httpClient gets a
// 10s timeout.
func NewRESTStore(baseURL, token string, httpClient *http.Client) *RESTStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RESTStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// Get returns the string value at key, or ErrNil.
func (s *RESTStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.do(ctx, "GET", key)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", ErrNil
	}
	return fmt.Sprint(v), nil
}

// Set stores value at key. A zero ttl keeps the key forever.
func (s *RESTStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	args := []interface{}{"SET", key, value}
	if ttl > 0 {
		args = append(args, "PX", ttl.Milliseconds())
	}
	_, err := s.do(ctx, args...)
	return err
}

// Del removes keys. Missing keys are ignored.
func (s *RESTStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := []interface{}{"DEL"}
	for _, k := range keys {
		args = append(args, k)
	}
	_, err := s.do(ctx, args...)
	return err
}

// Exists reports whether key is present.
func (s *RESTStore) Exists(ctx context.Context, key string) (bool, error) {
	v, err := s.do(ctx, "EXISTS", key)
	if err != nil {
		return false, err
	}
	n, err := toInt64(v)
	return n > 0, err
}

// Incr increments the counter at key and returns the new value.
func (s *RESTStore) Incr(ctx context.Context, key string) (int64, error) {
	v, err := s.do(ctx, "INCR", key)
	if err != nil {
		return 0, err
	}
	return toInt64(v)
}

// Expire sets a TTL on an existing key.
func (s *RESTStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	_, err := s.do(ctx, "PEXPIRE", key, ttl.Milliseconds())
	return err
}

// Eval tries EVALSHA first and loads the script body on NOSCRIPT.
func (s *RESTStore) Eval(ctx context.Context, script *Script, keys []string, args ...interface{}) (interface{}, error) {
	v, err := s.do(ctx, evalArgs("EVALSHA", script.Hash(), keys, args)...)
	if err != nil {
		if ce, ok := err.(*CommandError); ok && strings.HasPrefix(ce.Message, "NOSCRIPT") {
			v, err = s.do(ctx, evalArgs("EVAL", script.Source(), keys, args)...)
		}
	}
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNil
	}
	return v, nil
}

// Pipeline sends cmds in one /pipeline request. The first failed command
// is returned.
func (s *RESTStore) Pipeline(ctx context.Context, cmds ...Cmd) error {
	if len(cmds) == 0 {
		return nil
	}
	body := make([][]interface{}, 0, len(cmds))
	for _, c := range cmds {
		body = append(body, []interface{}(c))
	}

	var replies []restReply
	if err := s.post(ctx, s.baseURL+"/pipeline", body, &replies); err != nil {
		return err
	}
	for _, r := range replies {
		if r.Error != "" {
			return &CommandError{Message: r.Error}
		}
	}
	return nil
}

// Ping checks the endpoint and the token.
func (s *RESTStore) Ping(ctx context.Context) error {
	_, err := s.do(ctx, "PING")
	return err
}

// Close releases idle connections.
func (s *RESTStore) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

// Backend names the transport for logs.
func (s *RESTStore) Backend() string { return "upstash-rest" }

func (s *RESTStore) do(ctx context.Context, args ...interface{}) (interface{}, error) {
	var reply restReply
	if err := s.post(ctx, s.baseURL, args, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, &CommandError{Message: reply.Error}
	}
	return normalize(reply.Result), nil
}

func (s *RESTStore) post(ctx context.Context, url string, payload, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstash request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read upstash response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("upstash rejected credentials: %s", strings.TrimSpace(string(data)))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("unexpected upstash response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func evalArgs(verb, script string, keys []string, args []interface{}) []interface{} {
	out := make([]interface{}, 0, 3+len(keys)+len(args))
	out = append(out, verb, script, len(keys))
	for _, k := range keys {
		out = append(out, k)
	}
	return append(out, args...)
}

// normalize turns json.Number into int64 where possible so callers see the
// same shapes go-redis returns.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		return t.String()
	case []interface{}:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	default:
		return v
	}
}

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected integer reply %T", v)
	}
}
