package keymgmt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	cipherNonceSize = 12
	cipherTagSize   = 16
	cipherKeySize   = 32
)

// kdfContext keeps derived cipher keys bound to this use. It must never
// change once wallets exist, or every stored key becomes undecryptable.
const kdfContext = "stackvault.wallet-key.v1"

// ErrDecryption marks a ciphertext that is malformed, truncated or was
// encrypted under a different master secret. There is no tolerant fallback.
var ErrDecryption = errors.New("key material decryption failed")

// SecretCipher encrypts private keys for storage at rest with AES-256-GCM.
// The cipher key is derived from the configured master secret with Argon2id,
// so the raw secret is never used directly.
type SecretCipher struct {
	aead cipher.AEAD
}

func NewSecretCipher(masterSecret string) (*SecretCipher, error) {
	if masterSecret == "" {
		return nil, errors.New("master encryption secret is required")
	}

	key := argon2.IDKey([]byte(masterSecret), []byte(kdfContext), 1, 64*1024, 4, cipherKeySize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM mode: %w", err)
	}

	return &SecretCipher{aead: aead}, nil
}

// Encrypt seals a plaintext private key under a fresh random nonce and
// returns nonce-prefixed ciphertext.
func (c *SecretCipher) Encrypt(plaintextKey []byte) ([]byte, error) {
	nonce := make([]byte, cipherNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintextKey, nil)

	blob := make([]byte, cipherNonceSize+len(sealed))
	copy(blob[:cipherNonceSize], nonce)
	copy(blob[cipherNonceSize:], sealed)
	return blob, nil
}

// Decrypt opens a nonce-prefixed blob produced by Encrypt. Authentication
// failure of any kind yields ErrDecryption.
func (c *SecretCipher) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < cipherNonceSize+cipherTagSize {
		return nil, fmt.Errorf("%w: blob too short", ErrDecryption)
	}

	plaintext, err := c.aead.Open(nil, blob[:cipherNonceSize], blob[cipherNonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecryption, err.Error())
	}
	return plaintext, nil
}
