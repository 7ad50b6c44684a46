package crypto

import "fmt"

// Credential is an opaque mailbox credential that is either sealed
// (ciphertext) or plain. The sealed flag travels with the value, so call
// sites never silently operate on an unexpected representation; there is no
// implicit encryption or decryption tied to assignment.
type Credential struct {
	data   []byte
	sealed bool
}

// NewCredential creates a plain (unsealed) credential from a secret string.
func NewCredential(secret string) Credential {
	return Credential{data: []byte(secret), sealed: false}
}

// StoredCredential reconstructs a credential from its persisted
// representation (raw bytes plus the sealed flag stored alongside them).
func StoredCredential(data []byte, sealed bool) Credential {
	return Credential{data: data, sealed: sealed}
}

// IsSealed reports whether the credential currently holds ciphertext.
func (c Credential) IsSealed() bool {
	return c.sealed
}

// Empty reports whether the credential holds no value at all.
func (c Credential) Empty() bool {
	return len(c.data) == 0
}

// Bytes returns the raw stored representation for persistence. Callers must
// persist the sealed flag next to it.
func (c Credential) Bytes() []byte {
	return c.data
}

// Seal returns a sealed copy of the credential. Sealing an already sealed
// credential returns it unchanged.
func (c Credential) Seal(encryptor *Encryptor) (Credential, error) {
	if c.sealed {
		return c, nil
	}

	ciphertext, err := encryptor.Encrypt(string(c.data))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to seal credential: %w", err)
	}

	return Credential{data: ciphertext, sealed: true}, nil
}

// Reveal returns the plaintext secret. A credential that was never sealed is
// returned as-is.
func (c Credential) Reveal(encryptor *Encryptor) (string, error) {
	if !c.sealed {
		return string(c.data), nil
	}

	plaintext, err := encryptor.Decrypt(c.data)
	if err != nil {
		return "", fmt.Errorf("failed to reveal credential: %w", err)
	}

	return plaintext, nil
}
