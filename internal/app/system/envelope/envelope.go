// internal/app/system/envelope/envelope.go
//
// Package envelope seals JSON payloads into opaque strings that only holders
// of the shared secret can open. The client-side onboarding form uses the
// same secret to seal submissions, and the upload endpoint seals the stored
// image URL before handing it back to the browser.
//
// Wire format: base64url(version || nonce || ciphertext), where ciphertext
// is XChaCha20-Poly1305 over the JSON bytes with the version byte as
// associated data. The AEAD key is HKDF-SHA256 of the secret.
package envelope

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	version  byte = 1
	hkdfInfo      = "membersverify envelope v1"
)

var (
	// ErrDecryption is returned for every failure to open a sealed payload:
	// malformed encoding, unknown version, truncation, authentication
	// failure, or a plaintext that is not valid JSON for the target.
	ErrDecryption = errors.New("envelope: decryption failed")

	// ErrEmptyKey is returned when the shared secret is empty.
	ErrEmptyKey = errors.New("envelope: secret key is empty")
)

// Box holds a derived key so callers that seal or open many payloads do not
// re-run key derivation each time.
type Box struct {
	key []byte
}

// New derives a Box from the shared secret.
func New(secret string) (*Box, error) {
	if secret == "" {
		return nil, ErrEmptyKey
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("envelope: derive key: %w", err)
	}
	return &Box{key: key}, nil
}

// Seal encodes payload as JSON and encrypts it. Each call uses a fresh
// random nonce, so sealing the same payload twice yields different strings.
func (b *Box) Seal(payload any) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("envelope: encode payload: %w", err)
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("envelope: init cipher: %w", err)
	}

	header := []byte{version}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("envelope: nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, header)

	return base64.RawURLEncoding.EncodeToString(append(header, sealed...)), nil
}

// Open decrypts ciphertext and decodes the JSON plaintext into out.
func (b *Box) Open(ciphertext string, out any) error {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(ciphertext), "="))
	if err != nil {
		return fmt.Errorf("%w: malformed encoding", ErrDecryption)
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return fmt.Errorf("envelope: init cipher: %w", err)
	}
	if len(data) < 1+aead.NonceSize()+aead.Overhead() {
		return fmt.Errorf("%w: payload too short", ErrDecryption)
	}
	if data[0] != version {
		return fmt.Errorf("%w: unsupported version %d", ErrDecryption, data[0])
	}

	nonce := data[1 : 1+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, data[1+aead.NonceSize():], data[:1])
	if err != nil {
		return fmt.Errorf("%w: authentication failed", ErrDecryption)
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrDecryption, err)
	}
	return nil
}

// Seal is a convenience wrapper around New(secret).Seal(payload).
func Seal(payload any, secret string) (string, error) {
	b, err := New(secret)
	if err != nil {
		return "", err
	}
	return b.Seal(payload)
}

// Open is a convenience wrapper around New(secret).Open(ciphertext, out).
func Open(ciphertext, secret string, out any) error {
	b, err := New(secret)
	if err != nil {
		return err
	}
	return b.Open(ciphertext, out)
}
