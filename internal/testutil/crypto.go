package testutil

import (
	"testing"

	"github.com/UlissesMoraes/emailrelatorio/internal/crypto"
)

// GetTestEncryptor creates a test encryptor with a deterministic derived key.
// This is shared across all test packages to avoid duplication.
func GetTestEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()

	deriver, err := crypto.NewKeyDeriver("test-master-key", "test-salt")
	if err != nil {
		t.Fatalf("Failed to create key deriver: %v", err)
	}

	encryptor, err := crypto.NewEncryptorFromDeriver(deriver)
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}
	return encryptor
}
