// Package otpcode generates and checks numeric one-time codes. Codes are
// stored as SHA-256 hashes and compared in constant time.
package otpcode

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

const Digits = 6

var upper = big.NewInt(1_000_000)

// Generate returns a zero-padded 6-digit code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Hash returns the hex SHA-256 of code salted with the contact address, so
// equal codes for different addresses do not share a hash.
func Hash(address, code string) string {
	h := sha256.Sum256([]byte(address + ":" + code))
	return hex.EncodeToString(h[:])
}

// Equal reports whether code hashes to storedHash for address.
func Equal(address, code, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(address, code)), []byte(storedHash)) == 1
}
