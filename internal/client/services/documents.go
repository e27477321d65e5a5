package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docsafe/internal/client/batch"
	"github.com/dmitrijs2005/docsafe/internal/client/transport"
	"github.com/dmitrijs2005/docsafe/internal/envelope"
	"github.com/dmitrijs2005/docsafe/internal/logging"
	"github.com/google/uuid"
)

// UploadFile is one file selected for a batch upload.
type UploadFile struct {
	Name string
	Data []byte
}

// DocumentService runs the encrypt+upload pipeline. Each file of a batch is
// processed on its own goroutine; per-file progress is reported into the
// batch coordinator, which signals the consumer once the whole batch is
// terminal.
type DocumentService struct {
	client transport.Client
	codec  *envelope.Codec
	coord  *batch.Coordinator
	logger logging.Logger
}

func NewDocumentService(client transport.Client, codec *envelope.Codec, coord *batch.Coordinator, logger logging.Logger) *DocumentService {
	return &DocumentService{client: client, codec: codec, coord: coord, logger: logger}
}

// UploadBatch starts the concurrent encrypt+upload of files and returns the
// batch id immediately; completion is delivered through the coordinator's
// callback. An individual file's failure is recorded on its item and never
// stops the rest of the batch.
func (s *DocumentService) UploadBatch(ctx context.Context, files []UploadFile) (string, error) {
	itemIDs := make([]string, len(files))
	for i := range files {
		itemIDs[i] = uuid.NewString()
	}

	batchID, err := s.coord.StartBatch(itemIDs)
	if err != nil {
		return "", err
	}

	s.logger.Info(ctx, "upload batch started", "batch_id", batchID, "files", len(files))

	for i, f := range files {
		go s.uploadOne(ctx, batchID, itemIDs[i], f)
	}
	return batchID, nil
}

func (s *DocumentService) uploadOne(ctx context.Context, batchID, itemID string, f UploadFile) {
	report := func(status batch.ItemStatus, documentID string, err error) {
		if rerr := s.coord.ReportItemStatus(batchID, itemID, status, documentID, err); rerr != nil {
			s.logger.Warn(ctx, "status report dropped", "batch_id", batchID, "item_id", itemID, "error", rerr)
		}
	}

	report(batch.StatusEncrypting, "", nil)
	env, err := s.codec.Encrypt(f.Data)
	if err != nil {
		s.logger.Error(ctx, "encrypt failed", "batch_id", batchID, "item_id", itemID, "file", f.Name, "error", err)
		report(batch.StatusFailed, "", fmt.Errorf("encrypt %s: %w", f.Name, err))
		return
	}

	report(batch.StatusUploading, "", nil)
	documentID, err := s.client.UploadDocument(ctx, f.Name, env)
	if err != nil {
		s.logger.Error(ctx, "upload failed", "batch_id", batchID, "item_id", itemID, "file", f.Name, "error", err)
		report(batch.StatusFailed, "", fmt.Errorf("upload %s: %w", f.Name, err))
		return
	}

	report(batch.StatusCompleted, documentID, nil)
}

// List returns the caller's documents.
func (s *DocumentService) List(ctx context.Context) ([]transport.DocumentInfo, error) {
	docs, err := s.client.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}
