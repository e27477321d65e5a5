package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docsafe/internal/common"
	"github.com/dmitrijs2005/docsafe/internal/dbx"
	"github.com/dmitrijs2005/docsafe/internal/server/models"
)

// PostgresRepository implements document storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a document row and fills in the generated ID.
func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {

	query :=
		`INSERT INTO documents (user_id, name, size, storage_key, upload_status)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		doc.UserID, doc.Name, doc.Size, doc.StorageKey, doc.UploadStatus).Scan(&doc.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

// GetByID returns one document owned by userID. The ownership check is part
// of the query so a foreign document id reads as not found.
func (r *PostgresRepository) GetByID(ctx context.Context, userID string, id string) (*models.Document, error) {
	query :=
		`SELECT id, user_id, name, size, storage_key, upload_status, created_at FROM documents
		 WHERE user_id = $1 AND id = $2
		 `

	doc := &models.Document{}
	err := r.db.QueryRowContext(ctx, query, userID, id).Scan(
		&doc.ID, &doc.UserID, &doc.Name, &doc.Size, &doc.StorageKey, &doc.UploadStatus, &doc.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

// SelectByUser returns all completed documents for userID, newest first.
// Pending rows are invisible until the client confirms the upload.
func (r *PostgresRepository) SelectByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	query :=
		`SELECT id, user_id, name, size, storage_key, upload_status, created_at FROM documents
		 WHERE user_id = $1 AND upload_status = 'completed'
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		var item models.Document
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.Size,
			&item.StorageKey, &item.UploadStatus, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkUploaded marks the document as uploaded (upload_status='completed').
// Exactly one row must be affected; zero rows reads as not found.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, userID string, id string) error {
	query := `UPDATE documents SET upload_status='completed' WHERE user_id=$1 AND id=$2`
	result, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("failed to mark uploaded: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}
