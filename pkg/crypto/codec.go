// Package crypto seals persisted connection configs at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/advanced-rising/vanillameta/pkg/apperrors"
)

// ErrDecryptionFailed is returned when a sealed config cannot be opened.
var ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")

// ConfigCodec serializes engine config maps for the configuration store.
// With a key, configs are sealed with AES-256-GCM as base64(nonce||ciphertext||tag).
// Rows that hold a plain JSON object are always readable, so configs
// written before encryption was enabled keep working.
type ConfigCodec struct {
	gcm cipher.AEAD
}

// NewConfigCodec creates a codec. An empty key yields a plaintext codec.
// The key may be a base64-encoded 32-byte key (openssl rand -base64 32) or
// any passphrase, which is hashed to 32 bytes with SHA-256.
func NewConfigCodec(key string) (*ConfigCodec, error) {
	if key == "" {
		return &ConfigCodec{}, nil
	}

	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(raw) != 32 {
		sum := sha256.Sum256([]byte(key))
		raw = sum[:]
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &ConfigCodec{gcm: gcm}, nil
}

// Encrypted reports whether Encode seals its output.
func (c *ConfigCodec) Encrypted() bool {
	return c.gcm != nil
}

// Encode serializes config, sealing it when the codec has a key.
func (c *ConfigCodec) Encode(config map[string]any) (string, error) {
	if config == nil {
		config = map[string]any{}
	}
	plain, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	if c.gcm == nil {
		return string(plain), nil
	}

	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.gcm.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode turns a persisted config back into engine parameters. It matches
// datasource.ConfigDecoder.
func (c *ConfigCodec) Decode(serialized string) (map[string]any, error) {
	trimmed := strings.TrimSpace(serialized)
	if trimmed == "" {
		return map[string]any{}, nil
	}
	if strings.HasPrefix(trimmed, "{") {
		return unmarshalConfig([]byte(trimmed))
	}
	if c.gcm == nil {
		return nil, fmt.Errorf("%w: config is sealed but no credentials key is configured", apperrors.ErrCredentialsKeyMismatch)
	}

	data, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}
	nonceSize := c.gcm.NonceSize()
	if len(data) < nonceSize+c.gcm.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	plain, err := c.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCredentialsKeyMismatch, ErrDecryptionFailed)
	}
	return unmarshalConfig(plain)
}

func unmarshalConfig(b []byte) (map[string]any, error) {
	var config map[string]any
	if err := json.Unmarshal(b, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
	}
	if config == nil {
		config = map[string]any{}
	}
	return config, nil
}
