package gcsuploader

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/spend-insight/internal/gcs"
)

type StorageService = gcs.StorageService

// GCSStorageService implements StorageService with one shared storage client.
type GCSStorageService struct {
	client *storage.Client
}

var _ StorageService = (*GCSStorageService)(nil)

// NewGCSStorageService creates the storage client using Application Default
// Credentials.
func NewGCSStorageService(ctx context.Context) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorageService: create storage client: %w", err)
	}
	return &GCSStorageService{client: client}, nil
}

// Close releases the storage client.
func (s *GCSStorageService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *GCSStorageService) Upload(ctx context.Context, bucket, object string, r io.Reader, contentType string) (string, error) {
	return UploadWithClient(ctx, s.client, bucket, object, r, contentType)
}

func (s *GCSStorageService) UploadFile(ctx context.Context, bucket, object, filePath string) (string, error) {
	return UploadFileWithClient(ctx, s.client, bucket, object, filePath)
}

func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchWithClient(ctx, s.client, gcsURI)
}

func (s *GCSStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return ExtractFilenameFromGCSURI(uri)
}
