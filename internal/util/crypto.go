package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Decrypt reverses the AES-256-GCM envelope cmd/main.go expects around the
// signing private key: key is stretched with SHA-256 to a 32-byte AES key,
// and encHex is "<nonce><ciphertext>" hex-encoded, nonce first.
// This keeps the private key out of process environment variables in
// plaintext while avoiding a dependency on an external secrets manager.
func Decrypt(key []byte, encHex string) (string, error) {
	ciphertext, err := hex.DecodeString(encHex)
	if err != nil {
		return "", fmt.Errorf("decrypt: invalid hex: %w", err)
	}

	sum := sha256.Sum256(key)
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return "", fmt.Errorf("decrypt: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("decrypt: new gcm: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("decrypt: ciphertext shorter than nonce")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: open: %w", err)
	}

	return string(plaintext), nil
}
