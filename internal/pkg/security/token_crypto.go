package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	tokenNonceSize = 12
	tokenTagSize   = 16
)

// EncryptToken encrypts a token with AES-256-GCM. The key is derived from the
// shared application secret by hashing it to 32 bytes. The output is
// base64(nonce || tag || ciphertext) so the same string can be stored in a
// single text column.
func EncryptToken(plaintext, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required for token encryption")
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, tokenNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	// Seal appends the tag after the ciphertext; the stored layout keeps the
	// tag in front so it must be rearranged here and in DecryptToken.
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	ctLen := len(sealed) - tokenTagSize
	out := make([]byte, 0, tokenNonceSize+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed[ctLen:]...)
	out = append(out, sealed[:ctLen]...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptToken reverses EncryptToken. It never returns an error: any decode
// or tag-verification failure yields ("", false) so callers can fall back to
// a plaintext column when one is present.
func DecryptToken(encoded, secret string) (string, bool) {
	if encoded == "" || secret == "" {
		return "", false
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) < tokenNonceSize+tokenTagSize {
		return "", false
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", false
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", false
	}

	nonce := raw[:tokenNonceSize]
	tag := raw[tokenNonceSize : tokenNonceSize+tokenTagSize]
	ciphertext := raw[tokenNonceSize+tokenTagSize:]

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}
