// internal/pkg/jwt/keys.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// LoadKeyPair reads a PEM private key (PKCS1 or PKCS8) and a PEM public key
// (PKCS1 or PKIX).
func LoadKeyPair(privPath, pubPath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privPEM, err := os.ReadFile(privPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read private key %s: %w", privPath, err)
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse private key %s: %w", privPath, err)
	}

	pubPEM, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read public key %s: %w", pubPath, err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse public key %s: %w", pubPath, err)
	}

	if priv.PublicKey.N.Cmp(pub.N) != 0 {
		return nil, nil, fmt.Errorf("public key %s does not match private key %s", pubPath, privPath)
	}
	return priv, pub, nil
}
