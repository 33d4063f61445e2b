package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const messageContentMax = 1000

// Message is one immutable chat utterance.
type Message struct {
	id        uuid.UUID
	content   string
	sender    Participant
	timestamp time.Time
}

// NewMessage validates and trims content.
func NewMessage(content string, sender Participant, opts ...Option) (Message, error) {
	e := newEnv(opts)
	return newMessage(e, content, sender)
}

func newMessage(e env, content string, sender Participant) (Message, error) {
	c, err := validateContent(content)
	if err != nil {
		return Message{}, err
	}
	return Message{
		id:        e.ids.NewID(),
		content:   c,
		sender:    sender,
		timestamp: e.clock.Now(),
	}, nil
}

// ReconstructMessage rehydrates a stored message without re-applying bounds.
func ReconstructMessage(id uuid.UUID, content string, sender Participant, timestamp time.Time) Message {
	return Message{id: id, content: content, sender: sender, timestamp: timestamp}
}

func validateContent(content string) (string, error) {
	c := strings.TrimSpace(content)
	if c == "" {
		return "", NewValidationError("content", "content required")
	}
	if utf8.RuneCountInString(c) > messageContentMax {
		return "", NewValidationError("content", "content too long")
	}
	return c, nil
}

func (m Message) ID() uuid.UUID        { return m.id }
func (m Message) Content() string      { return m.content }
func (m Message) Sender() Participant  { return m.sender }
func (m Message) Timestamp() time.Time { return m.timestamp }

// Equal compares by id.
func (m Message) Equal(other Message) bool { return m.id == other.id }
