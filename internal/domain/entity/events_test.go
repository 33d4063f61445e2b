package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newUUID(n byte) uuid.UUID {
	var id uuid.UUID
	id[15] = n
	return id
}

func TestEvents_IdentityIsEventID(t *testing.T) {
	creator := mustParticipant(t, "Creator", "creator@example.com")
	chatID := newUUID(1)
	at := time.Now()

	a := ChatCreated{ID: newUUID(2), ChatID: chatID, ChatName: "General", Creator: creator, At: at}
	b := ChatCreated{ID: newUUID(3), ChatID: chatID, ChatName: "General", Creator: creator, At: at}

	require.False(t, SameEvent(a, b))
	require.True(t, SameEvent(a, a))
	require.False(t, SameEvent(a, nil))
}

func TestEvents_Accessors(t *testing.T) {
	sender := mustParticipant(t, "Bob", "bob@example.com")
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	msg := ReconstructMessage(newUUID(7), "hey", sender, at)

	sent := MessageSent{ID: newUUID(8), ChatID: newUUID(1), Message: msg, At: at}
	require.Equal(t, newUUID(8), sent.EventID())
	require.Equal(t, newUUID(1), sent.AggregateID())
	require.Equal(t, EventMessageSent, sent.EventName())
	require.Equal(t, at, sent.OccurredAt())

	var evt DomainEvent = ChatCreated{ID: newUUID(4), ChatID: newUUID(5), At: at}
	require.Equal(t, EventChatCreated, evt.EventName())
	require.Equal(t, newUUID(5), evt.AggregateID())
}

func TestErrors_Unwrap(t *testing.T) {
	id := newUUID(1)

	require.True(t, errors.Is(NewValidationError("name", "name too short"), ErrValidation))
	require.Equal(t, "name: name too short", NewValidationError("name", "name too short").Error())
	require.True(t, errors.Is(&CapacityError{Limit: 50}, ErrCapacity))
	require.True(t, errors.Is(NewChatNotFound(id), ErrNotFound))
	require.Contains(t, NewChatNotFound(id).Error(), id.String())
	require.True(t, errors.Is(&ConflictError{ChatID: id, ExpectedVersion: 2}, ErrConflict))

	sentinels := []error{ErrValidation, ErrCapacity, ErrNotFound, ErrConflict}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				require.False(t, errors.Is(a, b))
			}
		}
	}
}
