package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventChatCreated = "chat.created"
	EventMessageSent = "chat.message_sent"
)

// DomainEvent is a fact produced by the Chat aggregate.
type DomainEvent interface {
	EventID() uuid.UUID
	EventName() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

type ChatCreated struct {
	ID       uuid.UUID
	ChatID   uuid.UUID
	ChatName string
	Creator  Participant
	At       time.Time
}

func (e ChatCreated) EventID() uuid.UUID     { return e.ID }
func (e ChatCreated) EventName() string      { return EventChatCreated }
func (e ChatCreated) AggregateID() uuid.UUID { return e.ChatID }
func (e ChatCreated) OccurredAt() time.Time  { return e.At }

type MessageSent struct {
	ID      uuid.UUID
	ChatID  uuid.UUID
	Message Message
	At      time.Time
}

func (e MessageSent) EventID() uuid.UUID     { return e.ID }
func (e MessageSent) EventName() string      { return EventMessageSent }
func (e MessageSent) AggregateID() uuid.UUID { return e.ChatID }
func (e MessageSent) OccurredAt() time.Time  { return e.At }

// SameEvent reports whether a and b are the same fact, which is decided by
// event id alone.
func SameEvent(a, b DomainEvent) bool {
	if a == nil || b == nil {
		return false
	}
	return a.EventID() == b.EventID()
}
