package persist

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32
)

// ErrSealedData is returned when sealed state cannot be opened with the
// configured secret.
var ErrSealedData = errors.New("sealed state cannot be opened")

// Sealer encrypts persisted values with a key derived from a passphrase.
type Sealer struct {
	secret []byte
}

// NewSealer returns a Sealer for secret, or nil when secret is empty.
func NewSealer(secret string) *Sealer {
	if secret == "" {
		return nil
	}
	return &Sealer{secret: []byte(secret)}
}

func (s *Sealer) key(salt []byte) *[keySize]byte {
	var k [keySize]byte
	copy(k[:], argon2.IDKey(s.secret, salt, 1, 64*1024, 4, keySize))
	return &k
}

// Seal returns salt || nonce || box.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	var header [saltSize + nonceSize]byte
	if _, err := rand.Read(header[:]); err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], header[saltSize:])
	return secretbox.Seal(header[:], plain, &nonce, s.key(header[:saltSize])), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < saltSize+nonceSize+secretbox.Overhead {
		return nil, ErrSealedData
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[saltSize:saltSize+nonceSize])
	plain, ok := secretbox.Open(nil, sealed[saltSize+nonceSize:], &nonce, s.key(sealed[:saltSize]))
	if !ok {
		return nil, ErrSealedData
	}
	return plain, nil
}
