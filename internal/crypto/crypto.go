// Package crypto provides encryption for secrets kept outside the relational
// store. Uses AES-256-GCM for authenticated encryption and argon2id for key
// derivation.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32
	// SaltSize is the length of random salts fed to DeriveKey.
	SaltSize = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var (
	// ErrInvalidCiphertext is returned when decryption fails.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrInvalidKey is returned when the key is invalid.
	ErrInvalidKey = errors.New("invalid key")
)

// DeriveKey stretches secret with salt into a 32-byte key using argon2id.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, argonTime, argonMemory, argonThreads, KeySize)
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Seal encrypts plaintext with a 32-byte key. The nonce is prepended.
func Seal(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal.
func Open(data, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrInvalidCiphertext
	}
	nonce, cipherData := data[:nonceSize], data[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return plaintext, nil
}

// EncryptBytes encrypts data with a key derived from password. The random
// salt is stored in front of the sealed payload.
func EncryptBytes(data []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrInvalidKey
	}
	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}
	sealed, err := Seal(data, DeriveKey([]byte(password), salt))
	if err != nil {
		return nil, err
	}
	return append(salt, sealed...), nil
}

// DecryptBytes reverses EncryptBytes.
func DecryptBytes(data []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrInvalidKey
	}
	if len(data) < SaltSize {
		return nil, ErrInvalidCiphertext
	}
	return Open(data[SaltSize:], DeriveKey([]byte(password), data[:SaltSize]))
}

// EncryptString is EncryptBytes with base64 output.
func EncryptString(plaintext, password string) (string, error) {
	data, err := EncryptBytes([]byte(plaintext), password)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecryptString reverses EncryptString.
func DecryptString(ciphertext, password string) (string, error) {
	if password == "" {
		return "", ErrInvalidKey
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	plaintext, err := DecryptBytes(data, password)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
