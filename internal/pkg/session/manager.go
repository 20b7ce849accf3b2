// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"luckylogic-crm/internal/domain/auth"
	"luckylogic-crm/internal/kvstore"
	xerrors "luckylogic-crm/internal/pkg/errors"
)

// Manager keeps sessions and revoked token ids in the counter store. Both
// expire with the token they belong to.
type Manager struct {
	store kvstore.Store
}

func NewManager(store kvstore.Store) *Manager {
	return &Manager{store: store}
}

// CreateSession stores a new session until it expires.
func (m *Manager) CreateSession(ctx context.Context, s *auth.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.store.Set(ctx, m.sessionKey(s.IdentityID, s.JTI), string(data), ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// GetSession returns the live session or xerrors.ErrSessionExpired.
func (m *Manager) GetSession(ctx context.Context, identityID, jti string) (*auth.Session, error) {
	raw, err := m.store.Get(ctx, m.sessionKey(identityID, jti))
	if errors.Is(err, kvstore.ErrNil) {
		return nil, xerrors.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s auth.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// DeleteSession removes the session and blacklists its token id for the
// rest of the token's lifetime.
func (m *Manager) DeleteSession(ctx context.Context, identityID, jti string, expiresAt time.Time) error {
	if err := m.store.Del(ctx, m.sessionKey(identityID, jti)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return m.BlacklistToken(ctx, jti, time.Until(expiresAt))
}

// BlacklistToken rejects jti until ttl runs out.
func (m *Manager) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := m.store.Set(ctx, m.blacklistKey(jti), "1", ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// IsTokenBlacklisted reports whether jti was revoked.
func (m *Manager) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	return m.store.Exists(ctx, m.blacklistKey(jti))
}

func (m *Manager) sessionKey(identityID, jti string) string {
	return fmt.Sprintf("session:%s:%s", identityID, jti)
}

func (m *Manager) blacklistKey(jti string) string {
	return fmt.Sprintf("blacklist:%s", jti)
}
