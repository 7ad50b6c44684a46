package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	derivedKeyLength = 32
	pbkdf2Iterations = 100_000
)

// KeyDeriver derives encryption keys from a master key using PBKDF2-SHA256.
// It is an explicit dependency rather than a process-wide cached key: whoever
// needs encryption receives a KeyDeriver (or an Encryptor built from one), so
// tests can substitute a fixed key deterministically.
type KeyDeriver struct {
	masterKey []byte
	salt      []byte
}

// NewKeyDeriver creates a KeyDeriver from a non-empty master key and salt.
func NewKeyDeriver(masterKey, salt string) (*KeyDeriver, error) {
	if masterKey == "" {
		return nil, fmt.Errorf("master key must not be empty")
	}
	if salt == "" {
		return nil, fmt.Errorf("salt must not be empty")
	}

	return &KeyDeriver{
		masterKey: []byte(masterKey),
		salt:      []byte(salt),
	}, nil
}

// DeriveKey derives a 32-byte key. The derivation is deterministic for a
// given master key and salt.
func (d *KeyDeriver) DeriveKey() []byte {
	return pbkdf2.Key(d.masterKey, d.salt, pbkdf2Iterations, derivedKeyLength, sha256.New)
}

// NewEncryptorFromDeriver derives a key and builds an Encryptor from it.
func NewEncryptorFromDeriver(deriver *KeyDeriver) (*Encryptor, error) {
	return NewEncryptorFromKey(deriver.DeriveKey())
}
