// Package crypto decrypts API secrets stored in the iv:tag:ciphertext
// hex format produced by the credential provisioning tooling.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// DecryptSecret decrypts an AES-256-GCM encrypted value. The stored format
// is iv:tag:ciphertext with every part hex-encoded, and the key is 64 hex
// characters (32 bytes).
func DecryptSecret(storedValue string, encryptionKey string) (string, error) {
	parts := strings.Split(storedValue, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid encrypted secret format: expected iv:tag:ciphertext")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("failed to decode IV: %w", err)
	}

	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode tag: %w", err)
	}

	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	key, err := hex.DecodeString(encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to decode encryption key: %w", err)
	}

	if len(key) != 32 {
		return "", fmt.Errorf("encryption key must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	// GCM expects the tag appended to the ciphertext
	sealed := append(ciphertext, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// LoadEncryptionKey reads the encryption key from a Docker secret file or
// from the environment
func LoadEncryptionKey() (string, error) {
	secretPath := "/run/secrets/crossbot_encryption_key"
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data)), nil
	}

	if key := os.Getenv("CROSSBOT_ENCRYPTION_KEY"); key != "" {
		return key, nil
	}

	return "", fmt.Errorf("encryption key not found: check %s or CROSSBOT_ENCRYPTION_KEY env var", secretPath)
}
