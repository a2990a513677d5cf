package oath

import (
	"github.com/dmitrymomot/oathkit/pkg/totp"
)

// Cipher encrypts credential payloads at rest. Stores apply it transparently
// on every read and write when configured.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AESCipher encrypts payloads with AES-256-GCM.
type AESCipher struct {
	key []byte
}

// NewAESCipher creates a cipher from a 32-byte key. Use
// totp.GenerateEncryptionKey or totp.GetEncryptionKey to obtain one.
func NewAESCipher(key []byte) *AESCipher {
	return &AESCipher{key: key}
}

// Encrypt seals the plaintext. Output is base64-encoded ciphertext bytes.
func (c *AESCipher) Encrypt(plaintext []byte) ([]byte, error) {
	sealed, err := totp.EncryptSecret(string(plaintext), c.key)
	if err != nil {
		return nil, err
	}
	return []byte(sealed), nil
}

// Decrypt opens ciphertext produced by Encrypt.
func (c *AESCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	opened, err := totp.DecryptSecret(string(ciphertext), c.key)
	if err != nil {
		return nil, err
	}
	return []byte(opened), nil
}
