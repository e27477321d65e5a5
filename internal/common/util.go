package common

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandByteArray returns size cryptographically random bytes.
// It panics if the system random source fails, which is unrecoverable anyway.
func GenerateRandByteArray(size int) []byte {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return buf
}

// MakeRandHexString returns a hex string built from size random bytes,
// so the result is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// WipeByteArray zeroes the buffer in place. Safe to call with nil.
// Used to scrub key material before a slice is released.
func WipeByteArray(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
