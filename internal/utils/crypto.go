// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"math/big"
)

// GenerateRandomString returns a random alphanumeric string. The alphabet
// omits look-alike characters so codes can be typed from a printed label.
func GenerateRandomString(length int) (string, error) {
	const charset = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

func GenerateQRCode() (string, error) {
	return GenerateRandomString(12)
}
