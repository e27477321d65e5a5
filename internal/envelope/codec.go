package envelope

import (
	"fmt"

	"github.com/dmitrijs2005/docsafe/internal/common"
	"github.com/dmitrijs2005/docsafe/internal/cryptox"
)

// KeySource supplies the resident master key. The session manager implements
// it; Key must return common.ErrNoKey while the session is locked.
type KeySource interface {
	Key() ([]byte, error)
}

// Codec performs envelope encryption and decryption against a KeySource.
// It is safe for concurrent use: the codec itself is stateless, and the
// key source guards its own key material.
type Codec struct {
	keys KeySource
}

func NewCodec(keys KeySource) *Codec {
	return &Codec{keys: keys}
}

// Encrypt seals plaintext into a new envelope. A fresh random data key and
// nonce are generated on every call; neither is ever reused, including for
// re-encryption of the same document. Returns common.ErrNoKey when no master
// key is resident.
func (c *Codec) Encrypt(plaintext []byte) (*Envelope, error) {
	masterKey, err := c.keys.Key()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(masterKey)

	dataKey := common.GenerateRandByteArray(DataKeySize)
	defer common.WipeByteArray(dataKey)

	nonce, ciphertext, err := cryptox.EncryptAESGCM(dataKey, plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal document: %w", err)
	}

	keyNonce, wrappedKey, err := cryptox.EncryptAESGCM(masterKey, dataKey)
	if err != nil {
		return nil, fmt.Errorf("wrap data key: %w", err)
	}

	return &Envelope{
		Ver:            Version,
		Scheme:         Scheme,
		WrappedDataKey: wrappedKey,
		KeyNonce:       keyNonce,
		Nonce:          nonce,
		Ciphertext:     ciphertext,
	}, nil
}

// Decrypt unwraps the envelope's data key with the resident master key and
// opens the document body. Returns common.ErrNoKey when the session is
// locked and common.ErrAuthenticationFailed when the key is wrong or any of
// the envelope fields has been modified.
func (c *Codec) Decrypt(e *Envelope) ([]byte, error) {
	if err := validate(e); err != nil {
		return nil, err
	}

	masterKey, err := c.keys.Key()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(masterKey)

	dataKey, err := cryptox.DecryptAESGCM(masterKey, e.KeyNonce, e.WrappedDataKey)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(dataKey)

	return cryptox.DecryptAESGCM(dataKey, e.Nonce, e.Ciphertext)
}
