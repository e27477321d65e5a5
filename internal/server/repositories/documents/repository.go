package documents

import (
	"context"

	"github.com/dmitrijs2005/docsafe/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	GetByID(ctx context.Context, userID string, id string) (*models.Document, error)
	SelectByUser(ctx context.Context, userID string) ([]*models.Document, error)
	MarkUploaded(ctx context.Context, userID string, id string) error
}
