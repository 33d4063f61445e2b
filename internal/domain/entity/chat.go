package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	chatNameMin     = 3
	chatNameMax     = 100
	MaxParticipants = 50
)

// Chat is the aggregate root for the chat domain.
// It owns membership, the append-only message log and the queue of domain
// events not yet handed to the publisher. A *Chat is not safe for concurrent
// use; callers load, mutate and save one instance per request.
type Chat struct {
	id           uuid.UUID
	name         string
	participants []Participant
	messages     []Message
	createdAt    time.Time
	version      int
	events       []DomainEvent
	env          env

	// rows already in the store; everything past them is unsaved
	savedParticipants int
	savedMessages     int
}

// NewChat creates a chat whose only member is the creator and queues ChatCreated.
func NewChat(name string, creator Participant, opts ...Option) (*Chat, error) {
	n, err := validateChatName(name)
	if err != nil {
		return nil, err
	}
	if creator.Email().IsZero() {
		return nil, NewValidationError("creator", "creator required")
	}
	e := newEnv(opts)
	c := &Chat{
		id:           e.ids.NewID(),
		name:         n,
		participants: []Participant{creator},
		createdAt:    e.clock.Now(),
		env:          e,
	}
	c.record(ChatCreated{
		ID:       e.ids.NewID(),
		ChatID:   c.id,
		ChatName: c.name,
		Creator:  creator,
		At:       c.createdAt,
	})
	return c, nil
}

// ReconstructChat rehydrates a chat from trusted storage. Nothing is
// validated or re-sorted and no events are queued.
func ReconstructChat(id uuid.UUID, name string, participants []Participant, messages []Message, createdAt time.Time, version int, opts ...Option) *Chat {
	return &Chat{
		id:           id,
		name:         name,
		participants: append([]Participant(nil), participants...),
		messages:     append([]Message(nil), messages...),
		createdAt:    createdAt,
		version:      version,
		env:          newEnv(opts),

		savedParticipants: len(participants),
		savedMessages:     len(messages),
	}
}

func validateChatName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", NewValidationError("name", "name required")
	}
	l := utf8.RuneCountInString(n)
	if l < chatNameMin {
		return "", NewValidationError("name", "name too short")
	}
	if l > chatNameMax {
		return "", NewValidationError("name", "name too long")
	}
	return n, nil
}

// SendMessage appends a message from sender, adding the sender as a member
// first when needed. Either both effects happen or neither does.
func (c *Chat) SendMessage(content string, sender Participant) (Message, error) {
	if sender.Email().IsZero() {
		return Message{}, NewValidationError("sender", "sender required")
	}
	joining := !c.HasParticipant(sender)
	if joining {
		if err := c.checkCapacity(); err != nil {
			return Message{}, err
		}
	}
	msg, err := newMessage(c.env, content, sender)
	if err != nil {
		return Message{}, err
	}

	if joining {
		c.participants = append(c.participants, sender)
	}
	c.messages = append(c.messages, msg)
	c.record(MessageSent{
		ID:      c.env.ids.NewID(),
		ChatID:  c.id,
		Message: msg,
		At:      msg.Timestamp(),
	})
	return msg, nil
}

// AddParticipant is a no-op when a participant with the same email is
// already a member.
func (c *Chat) AddParticipant(p Participant) error {
	if p.Email().IsZero() {
		return NewValidationError("participant", "participant required")
	}
	if c.HasParticipant(p) {
		return nil
	}
	if err := c.checkCapacity(); err != nil {
		return err
	}
	c.participants = append(c.participants, p)
	return nil
}

func (c *Chat) checkCapacity() error {
	if len(c.participants) >= MaxParticipants {
		return &CapacityError{Limit: MaxParticipants}
	}
	return nil
}

// RecentMessages returns the last limit messages, oldest first.
func (c *Chat) RecentMessages(limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, NewValidationError("limit", "limit must be positive")
	}
	start := len(c.messages) - limit
	if start < 0 {
		start = 0
	}
	return append([]Message(nil), c.messages[start:]...), nil
}

func (c *Chat) HasParticipant(p Participant) bool {
	for _, existing := range c.participants {
		if existing.Equal(p) {
			return true
		}
	}
	return false
}

func (c *Chat) record(e DomainEvent) {
	c.events = append(c.events, e)
}

// DomainEvents returns a copy of the pending events in the order they were raised.
func (c *Chat) DomainEvents() []DomainEvent {
	return append([]DomainEvent(nil), c.events...)
}

// ClearEvents must only be called once the pending events have been
// persisted and published.
func (c *Chat) ClearEvents() {
	c.events = nil
}

// MarkSaved records a committed save at version v. Only a ChatRepository
// implementation calls it, after its transaction commits; the version is the
// optimistic-concurrency token for the next save.
func (c *Chat) MarkSaved(v int) {
	c.version = v
	c.savedParticipants = len(c.participants)
	c.savedMessages = len(c.messages)
}

// UnsavedParticipants returns members added since the chat was loaded or
// last saved, with the position of the first one.
func (c *Chat) UnsavedParticipants() ([]Participant, int) {
	return append([]Participant(nil), c.participants[c.savedParticipants:]...), c.savedParticipants
}

// UnsavedMessages returns messages appended since the chat was loaded or
// last saved, with the position of the first one.
func (c *Chat) UnsavedMessages() ([]Message, int) {
	return append([]Message(nil), c.messages[c.savedMessages:]...), c.savedMessages
}

func (c *Chat) ID() uuid.UUID        { return c.id }
func (c *Chat) Name() string         { return c.name }
func (c *Chat) CreatedAt() time.Time { return c.createdAt }
func (c *Chat) Version() int         { return c.version }

func (c *Chat) Participants() []Participant {
	return append([]Participant(nil), c.participants...)
}

func (c *Chat) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

func (c *Chat) ParticipantCount() int { return len(c.participants) }
func (c *Chat) MessageCount() int     { return len(c.messages) }
