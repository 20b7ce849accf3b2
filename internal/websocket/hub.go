// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "luckylogic-crm/internal/domain/websocket"
	"luckylogic-crm/internal/pkg/jwt"

	"go.uber.org/zap"
)

// TokenValidator checks an access token, including revocation.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// Hub fans customer events out to every connected operator.
type Hub struct {
	// Registered clients by identity ID
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	Register   chan *Client
	unregister chan *Client
	broadcast  chan *wstypes.WSMessage
	done       chan struct{}

	validator TokenValidator
	logger    *zap.Logger
}

// NewHub returns a hub that authenticates clients with validator.
func NewHub(validator TokenValidator, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan *wstypes.WSMessage, 256),
		done:       make(chan struct{}),
		validator:  validator,
		logger:     logger,
	}
}

// AuthenticateClient validates the token a connecting client presented.
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := h.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &ClientAuth{
		IdentityID: claims.Subject,
		SessionID:  claims.ID,
		Email:      claims.Email,
		Roles:      claims.Roles,
	}, nil
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastMessage(msg)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Publish queues msg for every client. It never blocks; when the queue is
// full the event is dropped and logged.
func (h *Hub) Publish(msg *wstypes.WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("realtime queue full, dropping event", zap.String("type", string(msg.Type)))
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.identityID] == nil {
		h.clients[client.identityID] = make(map[*Client]bool)
	}
	h.clients[client.identityID][client] = true
	total := h.totalClients()
	h.mu.Unlock()

	h.logger.Info("realtime client connected",
		zap.String("identity_id", client.identityID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"identity_id": client.identityID,
		"session_id":  client.sessionID,
		"email":       client.email,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.identityID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.identityID)
			}

			h.logger.Info("realtime client disconnected",
				zap.String("identity_id", client.identityID),
				zap.String("session_id", client.sessionID),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

func (h *Hub) broadcastMessage(msg *wstypes.WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.SendMessage(msg)
		}
	}
}

// DisconnectSession closes every connection opened with the given token id.
func (h *Hub) DisconnectSession(identityID, sessionID, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[identityID]
	if !ok {
		return
	}
	for client := range clients {
		if client.sessionID != sessionID {
			continue
		}
		client.SendMessage(wstypes.NewMessage(wstypes.EventTypeSessionRevoked, wstypes.SessionEventData{
			SessionID: sessionID,
			Reason:    reason,
		}))
		client.Close()
		delete(clients, client)
	}
	if len(clients) == 0 {
		delete(h.clients, identityID)
	}
}

// TotalClients counts connected clients.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, id)
	}
}
