package testutil

import (
	"wp-migrate/internal/encryption"
	"wp-migrate/internal/migrate"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() migrate.Encryptor {
	return encryption.NewTestEncryptor()
}
