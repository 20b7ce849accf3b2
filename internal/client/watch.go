// internal/client/watch.go
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	wstypes "luckylogic-crm/internal/domain/websocket"

	"github.com/gorilla/websocket"
)

// Watch streams realtime events to handle until ctx is cancelled or the
// server closes the connection. It returns nil when ctx ends the stream.
func (c *Client) Watch(ctx context.Context, handle func(*wstypes.WSMessage)) error {
	if c.token == "" {
		return errors.New("not logged in")
	}

	u := c.BaseURL()
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	u.RawQuery = url.Values{"token": {c.token}}.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return &APIError{Status: resp.StatusCode, Message: "realtime connection refused"}
		}
		return fmt.Errorf("failed to connect to realtime feed: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("realtime feed closed: %w", err)
		}
		msg, err := wstypes.ParseMessage(data)
		if err != nil {
			continue
		}
		if msg.Type == wstypes.EventTypePing {
			continue
		}
		handle(msg)
		if msg.Type == wstypes.EventTypeSessionRevoked {
			return nil
		}
	}
}
