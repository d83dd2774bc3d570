package encryption

import (
	"fmt"
	"io"

	"s3mirror/internal/config"
	"s3mirror/internal/mirror"
)

// KeyedEncryptor is an upload encryptor backed by a key pair on disk.
type KeyedEncryptor interface {
	mirror.Encryptor

	// Setup creates the key pair, protecting the private half with passphrase.
	Setup(passphrase string) error

	// Unlock opens the private key for decryption.
	Unlock(passphrase string) (Decryptor, error)

	// IsConfigured reports whether the key pair exists.
	IsConfigured() bool
}

// Decryptor reverses KeyedEncryptor.Encrypt.
type Decryptor interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// NewEncryptorFromConfig creates a KeyedEncryptor based on the configuration
// type. It returns nil for "none": uploads go out as plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (KeyedEncryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
