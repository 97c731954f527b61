package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateAccessCode returns an uppercase alphanumeric redemption code.
func GenerateAccessCode(length int) (string, error) {
	if length <= 0 {
		length = 8
	}
	limit := big.NewInt(int64(len(accessCodeAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate access code: %w", err)
		}
		buf[i] = accessCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
