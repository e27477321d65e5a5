package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/dbx"
	sc "github.com/dmitrijs2005/docsafe/internal/server/config"
	"github.com/dmitrijs2005/docsafe/internal/server/models"
	"github.com/dmitrijs2005/docsafe/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Seams for testing AWS client construction and presigning.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// DocumentService owns the document lifecycle: creating pending rows with a
// presigned upload URL, confirming uploads, listing, and issuing presigned
// download URLs. All blob traffic goes straight to object storage; the API
// server only handles metadata.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewDocumentService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: repomanager,
		config:      config,
	}
}

func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("users/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *DocumentService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

func (s *DocumentService) GetPresignedPutUrl(ctx context.Context) (string, string, error) {

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey()

	// Presigned PUT
	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.config.PresignValidityDuration))

	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

func (s *DocumentService) GetPresignedGetUrl(ctx context.Context, key string) (string, error) {

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	// Presigned GET
	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.config.PresignValidityDuration))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// Create registers a pending document for userID and returns the row plus an
// upload task carrying the presigned PUT URL. The row stays invisible to
// listings until MarkUploaded confirms the blob.
func (s *DocumentService) Create(ctx context.Context, userID string, name string, size int64) (*models.Document, *models.DocumentUploadTask, error) {

	storageKey, url, err := s.GetPresignedPutUrl(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error presigning upload: %v", err)
	}

	doc := &models.Document{
		UserID:       userID,
		Name:         name,
		Size:         size,
		StorageKey:   storageKey,
		UploadStatus: "pending",
	}

	repo := s.repomanager.Documents(s.db)
	doc, err = repo.Create(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating document: %v", err)
	}

	return doc, &models.DocumentUploadTask{DocumentID: doc.ID, URL: url}, nil
}

// MarkUploaded records that the client finished the presigned PUT for the
// given document. The pending check and the status flip must observe the same
// row, so both run in one transaction. Confirming an already completed
// document is a no-op.
func (s *DocumentService) MarkUploaded(ctx context.Context, userID string, id string) error {

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Documents(tx)

		doc, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if doc.UploadStatus == "completed" {
			return nil
		}
		return repo.MarkUploaded(ctx, userID, id)
	})
}

// List returns the user's completed documents, newest first.
func (s *DocumentService) List(ctx context.Context, userID string) ([]*models.Document, error) {

	repo := s.repomanager.Documents(s.db)

	docs, err := repo.SelectByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %v", err)
	}

	return docs, nil
}

// GetDownloadURL authorizes the document against userID and returns a
// presigned GET URL for its envelope blob.
func (s *DocumentService) GetDownloadURL(ctx context.Context, userID string, id string) (string, error) {

	repo := s.repomanager.Documents(s.db)

	doc, err := repo.GetByID(ctx, userID, id)
	if err != nil {
		return "", err
	}

	url, err := s.GetPresignedGetUrl(ctx, doc.StorageKey)

	return url, err
}
