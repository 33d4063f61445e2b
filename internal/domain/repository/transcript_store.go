//go:generate go run go.uber.org/mock/mockgen -source=transcript_store.go -destination=../../mocks/mock_transcript_store.go -package=mocks
package repository

import (
	"context"
	"io"
)

// TranscriptStore uploads rendered chat transcripts and returns where they can be read.
type TranscriptStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}
