package application

import (
	"time"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
)

type ParticipantView struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type MessageView struct {
	ID          string `json:"id"`
	ChatID      string `json:"chatId,omitempty"`
	Content     string `json:"content"`
	SenderName  string `json:"senderName"`
	SenderEmail string `json:"senderEmail"`
	Timestamp   string `json:"timestamp"`
}

type ChatView struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Participants []ParticipantView `json:"participants"`
	Messages     []MessageView     `json:"messages"`
	CreatedAt    string            `json:"createdAt"`
	Version      int               `json:"version"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ParticipantViewOf(p entity.Participant) ParticipantView {
	return ParticipantView{Name: p.Name().String(), Email: p.Email().String()}
}

func MessageViewOf(m entity.Message) MessageView {
	return MessageView{
		ID:          m.ID().String(),
		Content:     m.Content(),
		SenderName:  m.Sender().Name().String(),
		SenderEmail: m.Sender().Email().String(),
		Timestamp:   formatTime(m.Timestamp()),
	}
}

// MessageViewsOf keeps the input order and never returns nil.
func MessageViewsOf(msgs []entity.Message) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageViewOf(m))
	}
	return out
}

func ChatViewOf(c *entity.Chat) ChatView {
	ps := c.Participants()
	participants := make([]ParticipantView, 0, len(ps))
	for _, p := range ps {
		participants = append(participants, ParticipantViewOf(p))
	}
	return ChatView{
		ID:           c.ID().String(),
		Name:         c.Name(),
		Participants: participants,
		Messages:     MessageViewsOf(c.Messages()),
		CreatedAt:    formatTime(c.CreatedAt()),
		Version:      c.Version(),
	}
}

// Commands

type CreateChatInput struct {
	ChatName     string
	CreatorName  string
	CreatorEmail string
}

type SendMessageInput struct {
	ChatID      string
	Content     string
	SenderName  string
	SenderEmail string
}

type TranscriptView struct {
	ChatID string `json:"chatId"`
	URL    string `json:"url"`
}
