package gcs

import (
	"context"
	"io"
)

// StorageService stores uploaded statements so they can be imported
// asynchronously.
type StorageService interface {
	// Upload writes r to bucket/object and returns its gs:// URI.
	Upload(ctx context.Context, bucket, object string, r io.Reader, contentType string) (string, error)

	// UploadFile uploads a local file to a bucket under the given object name.
	UploadFile(ctx context.Context, bucket, object, filePath string) (string, error)

	// FetchFromGCS downloads file bytes from the given gs:// URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// ExtractFilenameFromGCSURI extracts the filename from a gs:// URI.
	ExtractFilenameFromGCSURI(uri string) string
}
