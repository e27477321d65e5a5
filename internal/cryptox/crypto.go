// Package cryptox holds the cryptographic primitives of DocSafe: the
// passphrase KDF and AES-GCM seal/open helpers. Everything above this
// package (envelope codec, session manager) works in terms of these
// functions and never touches cipher internals directly.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"github.com/dmitrijs2005/docsafe/internal/common"
	"golang.org/x/crypto/argon2"
)

// MasterKeySize is the length of a derived master key in bytes (AES-256).
const MasterKeySize = 32

// GenerateSalt returns a fresh random salt of the given size.
func GenerateSalt(size int) []byte {
	return common.GenerateRandByteArray(size)
}

// DeriveMasterKey derives a symmetric master key from a passphrase and salt
// using argon2id. The parameters (t=1, m=64MiB, p=4) follow the argon2
// authors' recommendation for interactive logins.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, MasterKeySize)
}

// MakeVerifier produces a value derived from the master key that is safe to
// share with the server for authentication. The key itself cannot be
// recovered from it.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// EncryptAESGCM encrypts plaintext with the given key under AES-GCM using a
// fresh random nonce. The authentication tag is appended to the returned
// ciphertext, per the stdlib convention.
func EncryptAESGCM(key, plaintext []byte) (nonce, ciphertext []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("cipher init: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("gcm init: %w", err)
	}

	nonce = common.GenerateRandByteArray(aesgcm.NonceSize())
	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)

	return nonce, ciphertext, nil
}

// DecryptAESGCM decrypts ciphertext produced by EncryptAESGCM. Any tag
// verification failure is reported as common.ErrAuthenticationFailed;
// a wrong key and tampered data are indistinguishable.
func DecryptAESGCM(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}
	if len(nonce) != aesgcm.NonceSize() {
		return nil, common.ErrAuthenticationFailed
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}
	return plaintext, nil
}
