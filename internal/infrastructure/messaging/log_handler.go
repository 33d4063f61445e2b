package messaging

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
)

// LogHandler writes one audit line per event.
type LogHandler struct {
	logger *logrus.Logger
}

func NewLogHandler(logger *logrus.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

func (h *LogHandler) Name() string { return "audit_log" }

func (h *LogHandler) Handle(_ context.Context, event entity.DomainEvent) error {
	fields := logrus.Fields{
		"event":       event.EventName(),
		"event_id":    event.EventID().String(),
		"chat_id":     event.AggregateID().String(),
		"occurred_at": event.OccurredAt(),
	}
	switch e := event.(type) {
	case entity.ChatCreated:
		fields["chat_name"] = e.ChatName
		fields["creator"] = e.Creator.Email().String()
	case entity.MessageSent:
		fields["message_id"] = e.Message.ID().String()
		fields["sender"] = e.Message.Sender().Email().String()
	}
	h.logger.WithFields(fields).Info("domain event")
	return nil
}
