package application_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oksasatya/go-ddd-chat/internal/application"
	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
	"github.com/oksasatya/go-ddd-chat/internal/mocks"
)

type deps struct {
	repo        *mocks.MockChatRepository
	events      *mocks.MockEventPublisher
	search      *mocks.MockMessageSearcher
	transcripts *mocks.MockTranscriptStore
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newService(t *testing.T, opts ...application.ServiceOption) (*application.ChatService, deps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := deps{
		repo:        mocks.NewMockChatRepository(ctrl),
		events:      mocks.NewMockEventPublisher(ctrl),
		search:      mocks.NewMockMessageSearcher(ctrl),
		transcripts: mocks.NewMockTranscriptStore(ctrl),
	}
	return application.NewChatService(d.repo, d.events, quietLogger(), opts...), d
}

func storedChat(t *testing.T, messages ...string) *entity.Chat {
	t.Helper()
	alice, err := entity.ParticipantOf("Alice", "alice@example.com")
	require.NoError(t, err)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	msgs := make([]entity.Message, 0, len(messages))
	for i, m := range messages {
		msgs = append(msgs, entity.ReconstructMessage(uuid.New(), m, alice, base.Add(time.Duration(i)*time.Minute)))
	}
	return entity.ReconstructChat(uuid.New(), "General", []entity.Participant{alice}, msgs, base, 3)
}

func bumpVersion(_ context.Context, c *entity.Chat) error {
	c.MarkSaved(c.Version() + 1)
	return nil
}

func TestCreateChat(t *testing.T) {
	svc, d := newService(t)
	ctx := context.Background()

	var saved *entity.Chat
	gomock.InOrder(
		d.repo.EXPECT().Save(ctx, gomock.Any()).DoAndReturn(func(ctx context.Context, c *entity.Chat) error {
			require.Len(t, c.DomainEvents(), 1)
			saved = c
			return bumpVersion(ctx, c)
		}),
		d.events.EXPECT().Publish(ctx, gomock.AssignableToTypeOf(entity.ChatCreated{})).Do(func(_ context.Context, e entity.DomainEvent) {
			created := e.(entity.ChatCreated)
			require.Equal(t, "General", created.ChatName)
			require.Equal(t, "alice@example.com", created.Creator.Email().String())
		}),
	)

	chat, err := svc.CreateChat(ctx, application.CreateChatInput{
		ChatName: "  General  ", CreatorName: "Alice", CreatorEmail: "Alice@Example.com",
	})
	require.NoError(t, err)
	require.Same(t, saved, chat)
	require.Equal(t, "General", chat.Name())
	require.Equal(t, 1, chat.Version())
	require.Empty(t, chat.DomainEvents())
}

func TestCreateChat_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   application.CreateChatInput
	}{
		{"short name", application.CreateChatInput{ChatName: "ab", CreatorName: "Alice", CreatorEmail: "alice@example.com"}},
		{"bad email", application.CreateChatInput{ChatName: "General", CreatorName: "Alice", CreatorEmail: "alice"}},
		{"blank creator", application.CreateChatInput{ChatName: "General", CreatorName: " ", CreatorEmail: "alice@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)
			_, err := svc.CreateChat(context.Background(), tt.in)
			require.ErrorIs(t, err, entity.ErrValidation)
		})
	}
}

func TestCreateChat_SaveFailureSkipsPublish(t *testing.T) {
	svc, d := newService(t)
	boom := errors.New("db down")
	d.repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(boom)

	_, err := svc.CreateChat(context.Background(), application.CreateChatInput{
		ChatName: "General", CreatorName: "Alice", CreatorEmail: "alice@example.com",
	})
	require.ErrorIs(t, err, boom)
}

func TestSendMessage_NewSenderJoins(t *testing.T) {
	svc, d := newService(t)
	ctx := context.Background()
	chat := storedChat(t)

	gomock.InOrder(
		d.repo.EXPECT().FindByID(ctx, chat.ID()).Return(chat, nil),
		d.repo.EXPECT().Save(ctx, chat).DoAndReturn(bumpVersion),
		d.events.EXPECT().Publish(ctx, gomock.AssignableToTypeOf(entity.MessageSent{})),
	)

	msg, err := svc.SendMessage(ctx, application.SendMessageInput{
		ChatID: chat.ID().String(), Content: " hi all ", SenderName: "Bob", SenderEmail: "bob@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "hi all", msg.Content())
	require.Equal(t, 2, chat.ParticipantCount())
	require.Equal(t, 4, chat.Version())
	require.Empty(t, chat.DomainEvents())
}

func TestSendMessage_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("bad chat id", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.SendMessage(ctx, application.SendMessageInput{ChatID: "nope", Content: "x", SenderName: "Bob", SenderEmail: "bob@example.com"})
		require.ErrorIs(t, err, entity.ErrValidation)
	})

	t.Run("chat not found", func(t *testing.T) {
		svc, d := newService(t)
		id := uuid.New()
		d.repo.EXPECT().FindByID(ctx, id).Return(nil, entity.NewChatNotFound(id))
		_, err := svc.SendMessage(ctx, application.SendMessageInput{ChatID: id.String(), Content: "x", SenderName: "Bob", SenderEmail: "bob@example.com"})
		require.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("empty content", func(t *testing.T) {
		svc, d := newService(t)
		chat := storedChat(t)
		d.repo.EXPECT().FindByID(ctx, chat.ID()).Return(chat, nil)
		_, err := svc.SendMessage(ctx, application.SendMessageInput{ChatID: chat.ID().String(), Content: "   ", SenderName: "Bob", SenderEmail: "bob@example.com"})
		require.ErrorIs(t, err, entity.ErrValidation)
		require.Equal(t, 1, chat.ParticipantCount())
	})

	t.Run("stale version", func(t *testing.T) {
		svc, d := newService(t)
		chat := storedChat(t)
		d.repo.EXPECT().FindByID(ctx, chat.ID()).Return(chat, nil)
		d.repo.EXPECT().Save(ctx, chat).Return(&entity.ConflictError{ChatID: chat.ID(), ExpectedVersion: 3})
		_, err := svc.SendMessage(ctx, application.SendMessageInput{ChatID: chat.ID().String(), Content: "hi", SenderName: "Alice", SenderEmail: "alice@example.com"})
		require.ErrorIs(t, err, entity.ErrConflict)
	})
}

func TestGetRecentMessages(t *testing.T) {
	ctx := context.Background()
	chat := storedChat(t, "one", "two", "three")

	t.Run("default limit", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.EXPECT().FindByID(ctx, chat.ID()).Return(chat, nil)
		msgs, err := svc.GetRecentMessages(ctx, chat.ID(), 0)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
	})

	t.Run("window", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.EXPECT().FindByID(ctx, chat.ID()).Return(chat, nil)
		msgs, err := svc.GetRecentMessages(ctx, chat.ID(), 2)
		require.NoError(t, err)
		require.Equal(t, "two", msgs[0].Content())
		require.Equal(t, "three", msgs[1].Content())
	})

	t.Run("negative limit", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.EXPECT().FindByID(ctx, chat.ID()).Return(chat, nil)
		_, err := svc.GetRecentMessages(ctx, chat.ID(), -1)
		require.ErrorIs(t, err, entity.ErrValidation)
	})
}

func TestDeleteChat(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("existing", func(t *testing.T) {
		svc, d := newService(t)
		gomock.InOrder(
			d.repo.EXPECT().ExistsByID(ctx, id).Return(true, nil),
			d.repo.EXPECT().DeleteByID(ctx, id).Return(nil),
		)
		require.NoError(t, svc.DeleteChat(ctx, id))
	})

	t.Run("missing", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.EXPECT().ExistsByID(ctx, id).Return(false, nil)
		require.ErrorIs(t, svc.DeleteChat(ctx, id), entity.ErrNotFound)
	})
}

func TestListChats(t *testing.T) {
	svc, d := newService(t)
	chats := []*entity.Chat{storedChat(t), storedChat(t)}
	d.repo.EXPECT().FindAll(gomock.Any()).Return(chats, nil)

	got, err := svc.ListChats(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestSearchMessages(t *testing.T) {
	ctx := context.Background()
	chat := storedChat(t, "lunch at noon")

	t.Run("delegates with clamped size", func(t *testing.T) {
		svc, d := newService(t)
		svc = application.NewChatService(svc.Repo, svc.Events, quietLogger(), application.WithSearcher(d.search))
		d.repo.EXPECT().ExistsByID(ctx, chat.ID()).Return(true, nil)
		d.search.EXPECT().Search(ctx, chat.ID(), "lunch", 10).Return(chat.Messages(), nil)

		hits, err := svc.SearchMessages(ctx, chat.ID(), " lunch ", 500)
		require.NoError(t, err)
		require.Len(t, hits, 1)
	})

	t.Run("no searcher", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.EXPECT().ExistsByID(ctx, chat.ID()).Return(true, nil)
		hits, err := svc.SearchMessages(ctx, chat.ID(), "lunch", 5)
		require.NoError(t, err)
		require.Empty(t, hits)
	})

	t.Run("blank query", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.SearchMessages(ctx, chat.ID(), "  ", 5)
		require.ErrorIs(t, err, entity.ErrValidation)
	})

	t.Run("unknown chat", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.EXPECT().ExistsByID(ctx, chat.ID()).Return(false, nil)
		_, err := svc.SearchMessages(ctx, chat.ID(), "lunch", 5)
		require.ErrorIs(t, err, entity.ErrNotFound)
	})
}

func TestExportTranscript(t *testing.T) {
	ctx := context.Background()
	chat := storedChat(t, "first", "second")

	t.Run("uploads text", func(t *testing.T) {
		svc, d := newService(t)
		svc = application.NewChatService(svc.Repo, svc.Events, quietLogger(), application.WithTranscriptStore(d.transcripts))
		d.repo.EXPECT().FindByID(ctx, chat.ID()).Return(chat, nil)
		d.transcripts.EXPECT().
			Upload(ctx, gomock.Any(), "text/plain; charset=utf-8", gomock.Any()).
			DoAndReturn(func(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
				require.True(t, strings.HasPrefix(objectPath, "transcripts/"+chat.ID().String()+"/"))
				body, err := io.ReadAll(r)
				require.NoError(t, err)
				require.Contains(t, string(body), "Alice <alice@example.com>: first")
				require.Less(t, strings.Index(string(body), "first"), strings.Index(string(body), "second"))
				return "https://storage.googleapis.com/bucket/" + objectPath, nil
			})

		out, err := svc.ExportTranscript(ctx, chat.ID())
		require.NoError(t, err)
		require.Equal(t, chat.ID().String(), out.ChatID)
		require.Contains(t, out.URL, "transcripts/")
	})

	t.Run("storage not configured", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.ExportTranscript(ctx, chat.ID())
		require.ErrorIs(t, err, application.ErrStorageUnavailable)
	})
}

func TestChatViewOf(t *testing.T) {
	chat := storedChat(t, "hello")
	v := application.ChatViewOf(chat)

	require.Equal(t, chat.ID().String(), v.ID)
	require.Equal(t, "2024-03-01T09:00:00Z", v.CreatedAt)
	require.Equal(t, []application.ParticipantView{{Name: "Alice", Email: "alice@example.com"}}, v.Participants)
	require.Len(t, v.Messages, 1)
	require.Equal(t, "Alice", v.Messages[0].SenderName)
	require.Equal(t, 3, v.Version)
}
