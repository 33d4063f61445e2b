package archive

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/go-ddd-chat/internal/domain/repository"
	"github.com/oksasatya/go-ddd-chat/pkg/helpers"
)

// GCSTranscriptStore writes transcripts into one bucket.
type GCSTranscriptStore struct {
	client *storage.Client
	bucket string
}

func NewGCSTranscriptStore(client *storage.Client, bucket string) *GCSTranscriptStore {
	return &GCSTranscriptStore{client: client, bucket: bucket}
}

func (s *GCSTranscriptStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	url, err := helpers.UploadObject(ctx, s.client, s.bucket, objectPath, contentType, r)
	if err != nil {
		return "", fmt.Errorf("gcs upload %s/%s: %w", s.bucket, objectPath, err)
	}
	return url, nil
}

var _ repository.TranscriptStore = (*GCSTranscriptStore)(nil)
