//go:generate go run go.uber.org/mock/mockgen -source=chat_repository.go -destination=../../mocks/mock_chat_repository.go -package=mocks
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
)

// ChatRepository loads and saves whole Chat aggregates.
// FindByID returns an error wrapping entity.ErrNotFound when the chat is absent.
// Save returns an error wrapping entity.ErrConflict when the stored version moved on.
type ChatRepository interface {
	Save(ctx context.Context, chat *entity.Chat) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Chat, error)
	FindAll(ctx context.Context) ([]*entity.Chat, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}
