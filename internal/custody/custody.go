// Package custody seals custodial private keys with the split-key scheme:
// the key is split in half, the whole key is encrypted under a cipher key
// derived from the first half, and the stored blob is the ciphertext followed
// by that first half.
//
// SECURITY DEFECT, KEPT ON PURPOSE: the blob alone is sufficient to recover
// the key, because the decryption half travels with the ciphertext. This
// reproduces the service's documented custody contract; a real deployment
// must seal keys under material that is not stored alongside them.
package custody

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrMalformedBlob indicates a stored key that does not match the
// ciphertext:half layout.
var ErrMalformedBlob = errors.New("malformed custody blob")

const separator = ":"

// Seal encrypts privateKey under its own first half and returns the storable
// blob.
func Seal(privateKey string) (string, error) {
	if len(privateKey) < 4 {
		return "", fmt.Errorf("private key too short to split")
	}
	firstHalf := privateKey[:len(privateKey)/2]

	aead, err := chacha20poly1305.NewX(deriveKey(firstHalf))
	if err != nil {
		return "", fmt.Errorf("build cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	ciphertext := aead.Seal(nonce, nonce, []byte(privateKey), nil)
	return hex.EncodeToString(ciphertext) + separator + firstHalf, nil
}

// Open reverses Seal, recovering the plaintext private key from a stored
// blob.
func Open(blob string) (string, error) {
	idx := strings.LastIndex(blob, separator)
	if idx <= 0 || idx == len(blob)-1 {
		return "", ErrMalformedBlob
	}
	ciphertext, err := hex.DecodeString(blob[:idx])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedBlob, err)
	}
	firstHalf := blob[idx+1:]

	aead, err := chacha20poly1305.NewX(deriveKey(firstHalf))
	if err != nil {
		return "", fmt.Errorf("build cipher: %w", err)
	}
	if len(ciphertext) < aead.NonceSize() {
		return "", ErrMalformedBlob
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedBlob, err)
	}
	return string(plain), nil
}

func deriveKey(half string) []byte {
	sum := sha256.Sum256([]byte(half))
	return sum[:]
}
