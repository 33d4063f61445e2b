package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
)

// chatSnapshot is the cached JSON form of a Chat. Pending events are never cached.
type chatSnapshot struct {
	ID           uuid.UUID             `json:"id"`
	Name         string                `json:"name"`
	CreatedAt    time.Time             `json:"createdAt"`
	Version      int                   `json:"version"`
	Participants []participantSnapshot `json:"participants"`
	Messages     []messageSnapshot     `json:"messages"`
}

type participantSnapshot struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type messageSnapshot struct {
	ID        uuid.UUID           `json:"id"`
	Content   string              `json:"content"`
	Sender    participantSnapshot `json:"sender"`
	Timestamp time.Time           `json:"timestamp"`
}

func snapshotOf(c *entity.Chat) chatSnapshot {
	s := chatSnapshot{
		ID:        c.ID(),
		Name:      c.Name(),
		CreatedAt: c.CreatedAt(),
		Version:   c.Version(),
	}
	for _, p := range c.Participants() {
		s.Participants = append(s.Participants, participantSnapshotOf(p))
	}
	for _, m := range c.Messages() {
		s.Messages = append(s.Messages, messageSnapshot{
			ID:        m.ID(),
			Content:   m.Content(),
			Sender:    participantSnapshotOf(m.Sender()),
			Timestamp: m.Timestamp(),
		})
	}
	return s
}

func participantSnapshotOf(p entity.Participant) participantSnapshot {
	return participantSnapshot{Name: p.Name().String(), Email: p.Email().String()}
}

func (s chatSnapshot) restore() (*entity.Chat, error) {
	participants := make([]entity.Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		rp, err := entity.ParticipantOf(p.Name, p.Email)
		if err != nil {
			return nil, fmt.Errorf("cached participant: %w", err)
		}
		participants = append(participants, rp)
	}
	messages := make([]entity.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		sender, err := entity.ParticipantOf(m.Sender.Name, m.Sender.Email)
		if err != nil {
			return nil, fmt.Errorf("cached sender: %w", err)
		}
		messages = append(messages, entity.ReconstructMessage(m.ID, m.Content, sender, m.Timestamp.UTC()))
	}
	return entity.ReconstructChat(s.ID, s.Name, participants, messages, s.CreatedAt.UTC(), s.Version), nil
}
