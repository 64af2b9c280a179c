// Package archive keeps the original uploaded PDFs in object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"

	"github.com/minio/minio-go/v7"
)

// ObjectClient is the subset of *minio.Client used by MinIOArchive.
type ObjectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinIOArchive stores uploads under {record id}/{filename} in one bucket.
type MinIOArchive struct {
	client ObjectClient
	bucket string
}

// NewMinIOArchive creates an archive over an existing bucket.
func NewMinIOArchive(client ObjectClient, bucket string) *MinIOArchive {
	return &MinIOArchive{client: client, bucket: bucket}
}

func (a *MinIOArchive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", key, err)
	}
	return nil
}

// Remove deletes the object. Removing a missing key succeeds.
func (a *MinIOArchive) Remove(ctx context.Context, key string) error {
	if err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove archived %s: %w", key, err)
	}
	return nil
}

var _ interfaces.Archive = (*MinIOArchive)(nil)
