// Package otp generates the numeric one-time codes used by the login flow.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeLength is the fixed number of digits in a verification code.
const CodeLength = 8

// GenerateCode returns a uniform-random numeric code of CodeLength digits,
// left-padded with zeros to fixed width.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}
