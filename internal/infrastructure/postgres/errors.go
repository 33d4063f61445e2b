package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
)

const uniqueViolation = "23505"

// mapError converts pgx errors for the chat identified by id into domain errors.
// Context errors pass through wrapped.
func mapError(err error, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("chat %s: %w", id, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.NewChatNotFound(id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &entity.ConflictError{ChatID: id}
	}
	return fmt.Errorf("chat %s: %w", id, err)
}
