// Package ipcauth authenticates IPC peers. The daemon and its helper
// binaries run as the same operator on one workstation, but the socket
// is reachable by any local process, so peers present short-lived tokens
// signed with a key derived from a daemon-managed passphrase file.
package ipcauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrInvalidToken covers any signature, expiry, or claims failure.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	// TokenTTL bounds a peer token's life. Helper binaries mint a fresh
	// token per invocation, so the window stays narrow.
	TokenTTL = 2 * time.Minute

	derivationSalt = "rdx-jack-ipc-v1"
	derivationIter = 4096
	keyLen         = 32
)

// Claims identify one IPC peer.
type Claims struct {
	Peer string `json:"peer"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies peer tokens.
type TokenManager struct {
	key []byte
}

// DefaultSecretPath returns the passphrase file location beside the
// profile store.
func DefaultSecretPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "rdx-jack", "ipc-secret")
}

// Open loads the passphrase file, creating a random one on first run,
// and derives the signing key from it.
func Open(path string) (*TokenManager, error) {
	passphrase, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		passphrase, err = createSecret(path)
	}
	if err != nil {
		return nil, fmt.Errorf("ipc secret: %w", err)
	}

	key := pbkdf2.Key(passphrase, []byte(derivationSalt), derivationIter, keyLen, sha256.New)
	return &TokenManager{key: key}, nil
}

// Issue mints a token identifying the named peer.
func (m *TokenManager) Issue(peer string) (string, error) {
	now := time.Now()
	claims := Claims{
		Peer: peer,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.key)
}

// Verify checks a token and returns the peer it names.
func (m *TokenManager) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Peer == "" {
		return "", ErrInvalidToken
	}
	return claims.Peer, nil
}

// createSecret writes a fresh random passphrase readable only by the
// operator.
func createSecret(path string) ([]byte, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	passphrase := []byte(hex.EncodeToString(raw))

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, passphrase, 0o600); err != nil {
		return nil, err
	}
	return passphrase, nil
}
