// Package cryptox provides at-rest protection for persisted session
// credentials. Refresh tokens outlive the process, so the sqlite state store
// seals them with AES-256-GCM before they touch disk.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for deriving the sealing key from a passphrase.
// These follow the OWASP minimum recommendation.
const (
	argonMemory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	argonIterations  = 2         // Iteration count
	argonParallelism = 1         // Number of threads
	keyLength        = 32        // AES-256 key size
)

// ErrCiphertextTooShort reports sealed data shorter than a nonce, which can
// never be valid output of Seal.
var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

// DeriveKey stretches a passphrase into a 32-byte sealing key using Argon2id.
// The salt scopes the key to one application/store; it does not need to be
// secret, only stable.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(
		passphrase,
		salt,
		argonIterations,
		argonMemory,
		argonParallelism,
		keyLength,
	)
}

// Sealer performs authenticated encryption with a fixed key. Construct one
// per store and pass it explicitly; there is no process-global key state.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a Sealer from a 32-byte key, typically the output of
// DeriveKey.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("cryptox: key must be %d bytes, got %d", keyLength, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create GCM: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Seal encrypts and authenticates plaintext.
// The output format is: [12-byte nonce][encrypted data][16-byte auth tag].
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: generate nonce: %w", err)
	}

	// Seal appends the ciphertext and auth tag to the nonce
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal, verifying the authentication tag.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: decryption failed: %w", err)
	}

	return plaintext, nil
}
