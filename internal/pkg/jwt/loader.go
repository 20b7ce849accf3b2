// internal/pkg/jwt/loader.go
package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"time"
)

type Config struct {
	PrivPath string
	PubPath  string
	Issuer   string
	Audience string
	TTL      time.Duration
	KID      string
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
	// Ephemeral is true when the key pair was generated at startup. Tokens
	// then do not survive a restart.
	Ephemeral bool
}

// LoadAndBuild reads the PEM key pair. With no paths configured a fresh
// 2048-bit key is generated instead.
func LoadAndBuild(cfg Config) (*Manager, error) {
	if cfg.PrivPath == "" && cfg.PubPath == "" {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		m := Build(cfg, priv, &priv.PublicKey)
		m.Ephemeral = true
		return m, nil
	}

	if cfg.PrivPath == "" || cfg.PubPath == "" {
		return nil, fmt.Errorf("both JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set")
	}
	priv, pub, err := LoadKeyPair(cfg.PrivPath, cfg.PubPath)
	if err != nil {
		return nil, err
	}

	return Build(cfg, priv, pub), nil
}

// Build wires a generator and verifier around an existing key pair.
func Build(cfg Config, priv *rsa.PrivateKey, pub *rsa.PublicKey) *Manager {
	return &Manager{
		Generator: NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.KID, cfg.TTL),
		Verifier:  NewVerifier(pub, cfg.Issuer, cfg.Audience),
	}
}
