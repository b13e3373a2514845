package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns a lowercase hex string generated from n bytes of
// cryptographically secure random data. Confirmation tokens use 32 bytes
// (64 hex characters); refresh tokens use 48. If the random number
// generator fails, an error is returned.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
