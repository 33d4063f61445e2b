//go:generate go run go.uber.org/mock/mockgen -source=event_publisher.go -destination=../../mocks/mock_event_publisher.go -package=mocks
package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
)

// EventPublisher hands a domain event to its subscribers without waiting for them.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.DomainEvent)
}
