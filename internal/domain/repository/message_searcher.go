//go:generate go run go.uber.org/mock/mockgen -source=message_searcher.go -destination=../../mocks/mock_message_searcher.go -package=mocks
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
)

// MessageSearcher runs full-text queries over the messages of one chat.
type MessageSearcher interface {
	Search(ctx context.Context, chatID uuid.UUID, query string, size int) ([]entity.Message, error)
}
