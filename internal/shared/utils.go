// Package shared provides helpers for minting and fingerprinting random
// bearer secrets.
package shared

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter specifies the number of random bytes to generate before
// encoding them as a hexadecimal string, so the final string is twice as long.
//
// It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {

	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// Digest returns the hex-encoded BLAKE2b-256 sum of secret. Stores key bearer
// secrets by their digest so a dump of the store cannot be replayed.
func Digest(secret string) string {
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
