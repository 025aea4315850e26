// Package security seals provider credentials with an application key so
// they can live in configuration without being readable.
package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// SealedPrefix marks a sealed credential value.
const SealedPrefix = "payouts.secret.v1:"

type Option func(*CredentialSealer)

// CredentialSealer encrypts credentials with AES-GCM under an app key.
type CredentialSealer struct {
	key     []byte
	keyID   string
	version int
}

type envelope struct {
	KeyID      string `json:"kid"`
	Version    int    `json:"ver"`
	Algorithm  string `json:"alg"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func WithKeyID(id string) Option {
	return func(s *CredentialSealer) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			s.keyID = trimmed
		}
	}
}

func WithVersion(version int) Option {
	return func(s *CredentialSealer) {
		if version > 0 {
			s.version = version
		}
	}
}

// NewCredentialSealer accepts raw 16, 24 or 32 byte keys; other key material
// is hashed down to 32 bytes.
func NewCredentialSealer(keyMaterial []byte, opts ...Option) (*CredentialSealer, error) {
	key := bytes.TrimSpace(keyMaterial)
	if len(key) == 0 {
		return nil, fmt.Errorf("security: key material is required")
	}
	sealer := &CredentialSealer{
		key:     normalizeKey(key),
		keyID:   "app-key",
		version: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sealer)
		}
	}
	return sealer, nil
}

func (s *CredentialSealer) Seal(plaintext string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("security: credential sealer is nil")
	}
	if plaintext == "" {
		return "", fmt.Errorf("security: plaintext is required")
	}
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("security: nonce generation failed: %w", err)
	}
	data, err := json.Marshal(envelope{
		KeyID:      s.keyID,
		Version:    s.version,
		Algorithm:  "aes-256-gcm",
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, []byte(plaintext), nil)),
	})
	if err != nil {
		return "", fmt.Errorf("security: encode envelope: %w", err)
	}
	return SealedPrefix + base64.RawURLEncoding.EncodeToString(data), nil
}

func (s *CredentialSealer) Open(sealed string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("security: credential sealer is nil")
	}
	payload, ok := strings.CutPrefix(strings.TrimSpace(sealed), SealedPrefix)
	if !ok {
		return "", fmt.Errorf("security: value is not sealed")
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("security: decode envelope: %w", err)
	}
	var parsed envelope
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("security: decode envelope: %w", err)
	}
	if parsed.KeyID != "" && parsed.KeyID != s.keyID {
		return "", fmt.Errorf("security: key id mismatch: got %q want %q", parsed.KeyID, s.keyID)
	}
	if parsed.Version > 0 && parsed.Version != s.version {
		return "", fmt.Errorf("security: key version mismatch: got %d want %d", parsed.Version, s.version)
	}
	nonce, err := base64.StdEncoding.DecodeString(parsed.Nonce)
	if err != nil {
		return "", fmt.Errorf("security: decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parsed.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("security: decode ciphertext: %w", err)
	}
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("security: invalid nonce size %d", len(nonce))
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("security: decrypt credential: %w", err)
	}
	return string(plaintext), nil
}

// Reveal opens sealed values and returns anything else unchanged.
func (s *CredentialSealer) Reveal(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	return s.Open(value)
}

func IsSealed(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), SealedPrefix)
}

func (s *CredentialSealer) KeyID() string {
	if s == nil {
		return ""
	}
	return s.keyID
}

func (s *CredentialSealer) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}
	return gcm, nil
}

func normalizeKey(value []byte) []byte {
	if len(value) == 16 || len(value) == 24 || len(value) == 32 {
		key := make([]byte, len(value))
		copy(key, value)
		return key
	}
	sum := sha256.Sum256(value)
	return sum[:]
}
