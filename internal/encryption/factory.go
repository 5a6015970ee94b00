package encryption

import (
	"fmt"

	"wp-migrate/internal/config"
	"wp-migrate/internal/migrate"
)

// NewEncryptorFromConfig creates the Encryptor for the configuration type.
// Type "none" (or empty) returns nil: artifacts are archived in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (migrate.Encryptor, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "age":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("age encryption requires public_key_path and private_key_path")
		}
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
