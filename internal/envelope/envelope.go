// Package envelope implements per-document envelope encryption: every
// document is encrypted under its own random data key, and only the data
// key (wrapped by the master key) travels alongside the ciphertext.
package envelope

import (
	"encoding/json"
	"fmt"
)

const (
	// Version is the current wire version of the envelope format.
	// Decoders must reject versions they do not understand so the format
	// can evolve without corrupting old documents.
	Version = 1

	// Scheme identifies the AEAD used for both the document body and the
	// wrapped data key.
	Scheme = "aes256gcm"

	// DataKeySize is the length of the per-document data key (AES-256).
	DataKeySize = 32
)

// Envelope is a sealed document: the body encrypted under a fresh data key,
// and the data key encrypted under the master key. The GCM authentication
// tags are carried inside the two ciphertext fields.
type Envelope struct {
	Ver            int    `json:"ver"`
	Scheme         string `json:"scheme"`
	WrappedDataKey []byte `json:"wrapped_data_key"`
	KeyNonce       []byte `json:"key_nonce"`
	Nonce          []byte `json:"nonce"`
	Ciphertext     []byte `json:"ciphertext"`
}

// Marshal serializes the envelope into its stable wire form.
func Marshal(e *Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal parses an envelope from its wire form and validates the version
// and scheme fields.
func Unmarshal(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("envelope decode: %w", err)
	}
	if err := validate(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

func validate(e *Envelope) error {
	if e.Ver != Version {
		return fmt.Errorf("unsupported envelope version: %d", e.Ver)
	}
	if e.Scheme != Scheme {
		return fmt.Errorf("unsupported envelope scheme: %s", e.Scheme)
	}
	return nil
}
