package messaging

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
)

func TestLogHandler_WritesAuditLine(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	h := NewLogHandler(logger)
	evt := sentEvent(t)

	require.NoError(t, h.Handle(context.Background(), evt))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.InfoLevel, entry.Level)
	require.Equal(t, "domain event", entry.Message)
	require.Equal(t, entity.EventMessageSent, entry.Data["event"])
	require.Equal(t, evt.ChatID.String(), entry.Data["chat_id"])
	require.Equal(t, evt.Message.ID().String(), entry.Data["message_id"])
	require.Equal(t, "alice@example.com", entry.Data["sender"])
}

func TestLogHandler_ChatCreated(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	alice, err := entity.ParticipantOf("Alice", "alice@example.com")
	require.NoError(t, err)
	chat, err := entity.NewChat("General", alice)
	require.NoError(t, err)

	require.NoError(t, NewLogHandler(logger).Handle(context.Background(), chat.DomainEvents()[0]))

	entry := hook.LastEntry()
	require.Equal(t, "General", entry.Data["chat_name"])
	require.Equal(t, "alice@example.com", entry.Data["creator"])
}
