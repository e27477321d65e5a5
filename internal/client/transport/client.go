// Package transport is the client's view of the DocSafe backend: account
// operations plus opaque "upload(envelope) -> documentId" and
// "fetch(documentId) -> envelope" calls. Blob bytes travel over presigned
// object-storage URLs; the API server only ever sees ciphertext.
package transport

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/envelope"
)

// DocumentInfo is the listing entry for one stored document.
type DocumentInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type Client interface {
	Close() error

	// Register creates an account. Only the salt and verifier leave the
	// client; the passphrase and master key never do.
	Register(ctx context.Context, username string, salt, verifier []byte) error

	// GetSalt returns the stored KDF salt for a username.
	GetSalt(ctx context.Context, username string) ([]byte, error)

	// Login exchanges the verifier for an access token held by the client.
	Login(ctx context.Context, username string, verifier []byte) error

	// UploadDocument stores a sealed envelope and returns the document id
	// assigned by the backend.
	UploadDocument(ctx context.Context, name string, env *envelope.Envelope) (string, error)

	// FetchDocument retrieves a previously uploaded envelope.
	FetchDocument(ctx context.Context, documentID string) (*envelope.Envelope, error)

	// ListDocuments returns the caller's documents.
	ListDocuments(ctx context.Context) ([]DocumentInfo, error)
}
