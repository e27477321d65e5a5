package models

import "time"

// Document describes server-side metadata for one stored document.
// The sealed payload itself lives in object storage under StorageKey;
// the server never sees plaintext.
type Document struct {
	ID     string
	UserID string
	// Name is the client-supplied display name. It is metadata only and
	// is not covered by the envelope encryption.
	Name string
	// Size is the size of the sealed envelope in bytes.
	Size int64
	// StorageKey is the object-storage key (path) of the envelope blob.
	StorageKey string
	// UploadStatus tracks the blob state: "pending" until the client
	// confirms the presigned PUT, then "completed".
	UploadStatus string
	CreatedAt    time.Time
}

// DocumentUploadTask instructs the client to upload an envelope using a
// presigned URL.
type DocumentUploadTask struct {
	DocumentID string
	// URL is a temporary presigned HTTP URL for the client to PUT the ciphertext.
	URL string
}
