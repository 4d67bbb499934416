package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/conduit/pkg/channel"
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey seals every new message. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open a message,
	// so producers and consumers can rotate keys without draining the channel first.
	FallbackKeys [][]byte
}

// ErrDecrypt is returned when no configured key opens a message.
var ErrDecrypt = errors.New("decryption failed with all available keys")

// Encrypted seals the output of an inner codec with AES-GCM.
// Each message carries its own random nonce as a prefix.
type Encrypted struct {
	inner    channel.Codec
	active   cipher.AEAD
	fallback []cipher.AEAD
}

// NewEncrypted wraps inner with authenticated encryption.
func NewEncrypted(inner channel.Codec, config EncryptionConfig) (*Encrypted, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	active, err := newGCM(config.ActiveKey)
	if err != nil {
		return nil, err
	}
	e := &Encrypted{inner: inner, active: active}
	for i, key := range config.FallbackKeys {
		gcm, err := newGCM(key)
		if err != nil {
			return nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		e.fallback = append(e.fallback, gcm)
	}
	return e, nil
}

func (e *Encrypted) Name() string { return e.inner.Name() + "+aes" }

func (e *Encrypted) Marshal(v any) ([]byte, error) {
	plainText, err := e.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, e.active.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}
	return e.active.Seal(nonce, nonce, plainText, nil), nil
}

func (e *Encrypted) Unmarshal(data []byte, v any) error {
	plainText, err := open(e.active, data)
	for _, gcm := range e.fallback {
		if err == nil {
			break
		}
		plainText, err = open(gcm, data)
	}
	if err != nil {
		return ErrDecrypt
	}
	return e.inner.Unmarshal(plainText, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func open(gcm cipher.AEAD, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}
