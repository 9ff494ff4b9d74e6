package crypto

import (
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/scrypt"
)

// vaultSalt is the fixed KDF salt for passphrase-supplied keys. There is a
// single service-wide secret, so per-entry salting does not apply; the salt
// only domain-separates this service's derivation.
var vaultSalt = []byte("fixxit-tenant-db-vault-v1")

// Vault encrypts and decrypts tenant database passwords with a
// process-wide key. The key is fixed at construction; rotating it
// requires a service restart and re-encryption of stored passwords.
type Vault struct {
	key []byte
}

// NewVault builds a vault from configured key material.
//
// Accepted forms, in order:
//   - base64 of a 32-byte key: used directly
//   - any other non-empty string: treated as a passphrase and stretched
//     with scrypt
//   - empty: a fresh key is generated and logged at WARN so the operator
//     can persist it; losing it makes stored passwords unrecoverable
func NewVault(keyMaterial string, logger zerolog.Logger) (*Vault, error) {
	if keyMaterial == "" {
		key, err := GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
		logger.Warn().
			Str("key", base64.StdEncoding.EncodeToString(key)).
			Msg("no DATABASE_PASSWORD_ENCRYPTION_KEY set; generated one, persist it or stored tenant passwords will be unrecoverable after restart")
		return &Vault{key: key}, nil
	}

	if decoded, err := base64.StdEncoding.DecodeString(keyMaterial); err == nil && len(decoded) == keySize {
		return &Vault{key: decoded}, nil
	}

	key, err := scrypt.Key([]byte(keyMaterial), vaultSalt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}
	logger.Info().
		Str("key_fingerprint", KeyFingerprint(key)).
		Msg("derived vault key from passphrase")
	return &Vault{key: key}, nil
}

// NewVaultWithKey builds a vault around an explicit 32-byte key.
func NewVaultWithKey(key []byte) (*Vault, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("vault: key must be %d bytes, got %d", keySize, len(key))
	}
	return &Vault{key: key}, nil
}

// EncryptPassword encrypts a plaintext password for storage. The empty
// password maps to the empty ciphertext sentinel rather than an
// encrypted blob.
func (v *Vault) EncryptPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return Encrypt([]byte(plaintext), v.key)
}

// DecryptPassword reverses EncryptPassword. Failures wrap
// ErrDecryptFailed; they indicate a rotated key or corrupted ciphertext
// and block all use of that tenant's credentials.
func (v *Vault) DecryptPassword(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	plaintext, err := Decrypt(ciphertext, v.key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
