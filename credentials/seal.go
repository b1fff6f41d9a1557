package credentials

import (
	"crypto/rand"
	"fmt"

	"github.com/jrsteele09/pigmy-admin/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts tokens before they reach disk. A nil *Sealer passes
// data through unchanged.
type Sealer struct {
	key []byte
}

// NewSealer returns a sealer for a 32 byte key, or nil for an empty key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) == 0 {
		return nil, nil
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("[credentials NewSealer] key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Sealer{key: append([]byte(nil), key...)}, nil
}

// Seal returns nonce || ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	if s == nil {
		return plaintext, nil
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, errors.Wrapf(err, "[credentials Seal] cipher")
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrapf(err, "[credentials Seal] nonce")
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if s == nil {
		return sealed, nil
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, errors.Wrapf(err, "[credentials Open] cipher")
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.ErrCorruptCredentials
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCorruptCredentials, "[credentials Open] %v", err)
	}
	return plaintext, nil
}
