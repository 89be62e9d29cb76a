// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/arcana-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// NonceSize is the AES-GCM nonce size (96 bits).
const NonceSize = 12

// KeySize is the AES-256 key size.
const KeySize = 32

// SaltSize is the salt size for passphrase key derivation.
const SaltSize = 16

// PBKDF2Iterations follows the OWASP recommendation for PBKDF2-SHA-256.
const PBKDF2Iterations = 600000

// tokenMagic identifies the on-disk token blob format.
// Layout: magic | salt | nonce | ciphertext. The salt is zero when a key
// file is used instead of a passphrase.
var tokenMagic = []byte("ARC1")

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoTokens indicates no stored credentials exist.
	ErrNoTokens = errors.New("no stored credentials")
	// ErrCorruptTokens indicates the token blob failed to decode.
	ErrCorruptTokens = errors.New("credential store is corrupt")
	// ErrDecryptFailed indicates decryption failed (wrong key or tampering).
	ErrDecryptFailed = errors.New("credential decryption failed")
)

// =============================================================================
// TOKENS
// =============================================================================

// Tokens is the credential pair issued by the backend.
type Tokens struct {
	Access    string    `json:"access"`
	Refresh   string    `json:"refresh"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Valid reports whether an access token is present and not known-expired.
func (t Tokens) Valid() bool {
	if t.Access == "" {
		return false
	}
	if !t.ExpiresAt.IsZero() && time.Now().After(t.ExpiresAt) {
		return false
	}
	return true
}

// =============================================================================
// TOKEN STORE
// =============================================================================

// TokenStore persists the credential pair encrypted at rest.
// All methods are safe for concurrent use.
type TokenStore struct {
	mu   sync.Mutex
	path string

	// Exactly one of key / passphrase is set.
	key        []byte
	passphrase string
}

// NewTokenStore creates a store backed by a random master key held in a key
// file beside the token file. The key is created on first use.
func NewTokenStore(path string) (*TokenStore, error) {
	key, err := loadOrCreateKey(keyPathFor(path))
	if err != nil {
		return nil, err
	}
	return &TokenStore{path: path, key: key}, nil
}

// NewTokenStoreWithPassphrase creates a store whose key is derived from a
// user passphrase with PBKDF2. No key file is written.
func NewTokenStoreWithPassphrase(path, passphrase string) *TokenStore {
	return &TokenStore{path: path, passphrase: passphrase}
}

// Save encrypts and writes the tokens.
func (s *TokenStore) Save(t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}
	return s.sealToFile(s.path, plaintext)
}

// Load reads and decrypts the stored tokens.
func (s *TokenStore) Load() (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := s.openFromFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Tokens{}, ErrNoTokens
		}
		return Tokens{}, err
	}

	var t Tokens
	if err := json.Unmarshal(plaintext, &t); err != nil {
		return Tokens{}, ErrCorruptTokens
	}
	return t, nil
}

// sealToFile encrypts a payload and writes it atomically. Callers hold s.mu.
func (s *TokenStore) sealToFile(path string, plaintext []byte) error {
	salt := make([]byte, SaltSize)
	key := s.key
	if s.passphrase != "" {
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
		key = deriveKey(s.passphrase, salt)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	blob := make([]byte, 0, len(tokenMagic)+SaltSize+NonceSize+len(plaintext)+aead.Overhead())
	blob = append(blob, tokenMagic...)
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = aead.Seal(blob, nonce, plaintext, nil)

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFileWithDir(path, blob, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	return nil
}

// openFromFile reads and decrypts a sealed payload. A missing file surfaces
// as the bare os.IsNotExist error so callers can map it. Callers hold s.mu.
func (s *TokenStore) openFromFile(path string) ([]byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	if len(blob) < len(tokenMagic)+SaltSize+NonceSize || string(blob[:len(tokenMagic)]) != string(tokenMagic) {
		return nil, ErrCorruptTokens
	}
	blob = blob[len(tokenMagic):]

	salt := blob[:SaltSize]
	nonce := blob[SaltSize : SaltSize+NonceSize]
	ciphertext := blob[SaltSize+NonceSize:]

	key := s.key
	if s.passphrase != "" {
		key = deriveKey(s.passphrase, salt)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// Clear removes the stored tokens. Missing files are not an error; logout
// must be idempotent.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential store: %w", err)
	}
	return nil
}

// Exists reports whether stored credentials are present on disk.
func (s *TokenStore) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(s.path)
	return err == nil
}

// =============================================================================
// TOTP SECRET
// =============================================================================

// SaveTOTPSecret stores the two-factor secret encrypted beside the tokens.
// With a stored secret, login codes are generated locally instead of
// prompting.
func (s *TokenStore) SaveTOTPSecret(secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealToFile(totpPathFor(s.path), []byte(secret))
}

// LoadTOTPSecret returns the stored two-factor secret, or empty when none
// has been saved. The secret survives Clear; signing out does not discard
// the authenticator.
func (s *TokenStore) LoadTOTPSecret() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := s.openFromFile(totpPathFor(s.path))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(plaintext), nil
}

// ClearTOTPSecret removes the stored two-factor secret. Idempotent.
func (s *TokenStore) ClearTOTPSecret() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(totpPathFor(s.path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stored secret: %w", err)
	}
	return nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

// newAEAD builds the AES-256-GCM cipher for a key.
func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// deriveKey derives an AES-256 key from a passphrase with PBKDF2-SHA-256.
func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, KeySize, sha256.New)
}

// keyPathFor returns the key file path for a token file path.
func keyPathFor(tokenPath string) string {
	return filepath.Join(filepath.Dir(tokenPath), "master.key")
}

// totpPathFor returns the stored-secret file path for a token file path.
func totpPathFor(tokenPath string) string {
	return filepath.Join(filepath.Dir(tokenPath), "totp.enc")
}

// loadOrCreateKey reads the master key, generating one on first use.
// The key file is created with owner-only permissions.
func loadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != KeySize {
			return nil, fmt.Errorf("key file %s has invalid length %d", path, len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key = make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, key, 0600, 0700); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return key, nil
}
