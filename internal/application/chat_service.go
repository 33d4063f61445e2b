package application

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-chat/internal/domain/repository"
)

const (
	DefaultRecentLimit = 50
	defaultSearchSize  = 10
	maxSearchSize      = 50
)

// ErrStorageUnavailable is returned by ExportTranscript when no transcript store is configured.
var ErrStorageUnavailable = errors.New("transcript storage not configured")

type ChatService struct {
	Repo        repo.ChatRepository
	Events      repo.EventPublisher
	Search      repo.MessageSearcher
	Transcripts repo.TranscriptStore
	Logger      *logrus.Logger

	entityOpts []entity.Option
	now        func() time.Time
}

type ServiceOption func(*ChatService)

// WithSearcher enables SearchMessages. Without it searches return no hits.
func WithSearcher(s repo.MessageSearcher) ServiceOption {
	return func(cs *ChatService) { cs.Search = s }
}

func WithTranscriptStore(t repo.TranscriptStore) ServiceOption {
	return func(cs *ChatService) { cs.Transcripts = t }
}

// WithEntityOptions forwards id generator and clock overrides to new aggregates.
func WithEntityOptions(opts ...entity.Option) ServiceOption {
	return func(cs *ChatService) { cs.entityOpts = append(cs.entityOpts, opts...) }
}

func NewChatService(r repo.ChatRepository, events repo.EventPublisher, logger *logrus.Logger, opts ...ServiceOption) *ChatService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &ChatService{
		Repo:   r,
		Events: events,
		Logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ParseChatID turns a path parameter into a chat id.
func ParseChatID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, entity.NewValidationError("chatId", "invalid chat id")
	}
	return id, nil
}

func (s *ChatService) CreateChat(ctx context.Context, in CreateChatInput) (*entity.Chat, error) {
	creator, err := entity.ParticipantOf(in.CreatorName, in.CreatorEmail)
	if err != nil {
		return nil, err
	}
	chat, err := entity.NewChat(in.ChatName, creator, s.entityOpts...)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Save(ctx, chat); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, chat)
	s.Logger.WithFields(logrus.Fields{"chat_id": chat.ID().String(), "creator": creator.Email().String()}).Info("chat created")
	return chat, nil
}

func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (entity.Message, error) {
	id, err := ParseChatID(in.ChatID)
	if err != nil {
		return entity.Message{}, err
	}
	sender, err := entity.ParticipantOf(in.SenderName, in.SenderEmail)
	if err != nil {
		return entity.Message{}, err
	}
	chat, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return entity.Message{}, err
	}
	msg, err := chat.SendMessage(in.Content, sender)
	if err != nil {
		return entity.Message{}, err
	}
	if err := s.Repo.Save(ctx, chat); err != nil {
		return entity.Message{}, err
	}
	s.publishEvents(ctx, chat)
	return msg, nil
}

// publishEvents runs only after a successful save.
func (s *ChatService) publishEvents(ctx context.Context, chat *entity.Chat) {
	if s.Events != nil {
		for _, e := range chat.DomainEvents() {
			s.Events.Publish(ctx, e)
		}
	}
	chat.ClearEvents()
}

func (s *ChatService) GetChat(ctx context.Context, id uuid.UUID) (*entity.Chat, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *ChatService) ListChats(ctx context.Context) ([]*entity.Chat, error) {
	return s.Repo.FindAll(ctx)
}

// GetRecentMessages uses DefaultRecentLimit when limit is zero. Negative limits are rejected.
func (s *ChatService) GetRecentMessages(ctx context.Context, id uuid.UUID, limit int) ([]entity.Message, error) {
	if limit == 0 {
		limit = DefaultRecentLimit
	}
	chat, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return chat.RecentMessages(limit)
}

// EnsureChatExists returns a NotFoundError when id names no stored chat.
func (s *ChatService) EnsureChatExists(ctx context.Context, id uuid.UUID) error {
	ok, err := s.Repo.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return entity.NewChatNotFound(id)
	}
	return nil
}

func (s *ChatService) DeleteChat(ctx context.Context, id uuid.UUID) error {
	if err := s.EnsureChatExists(ctx, id); err != nil {
		return err
	}
	if err := s.Repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.Logger.WithField("chat_id", id.String()).Info("chat deleted")
	return nil
}

// SearchMessages runs a full-text query over one chat's messages.
func (s *ChatService) SearchMessages(ctx context.Context, id uuid.UUID, query string, size int) ([]entity.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, entity.NewValidationError("q", "query required")
	}
	if size <= 0 || size > maxSearchSize {
		size = defaultSearchSize
	}
	if err := s.EnsureChatExists(ctx, id); err != nil {
		return nil, err
	}
	if s.Search == nil {
		return []entity.Message{}, nil
	}
	hits, err := s.Search.Search(ctx, id, query, size)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return hits, nil
}

// ExportTranscript uploads the full message log as plain text and returns its URL.
func (s *ChatService) ExportTranscript(ctx context.Context, id uuid.UUID) (TranscriptView, error) {
	if s.Transcripts == nil {
		return TranscriptView{}, ErrStorageUnavailable
	}
	chat, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return TranscriptView{}, err
	}
	now := s.now()
	objectPath := path.Join("transcripts", id.String(), now.Format("20060102T150405Z")+".txt")
	url, err := s.Transcripts.Upload(ctx, objectPath, "text/plain; charset=utf-8", strings.NewReader(RenderTranscript(chat, now)))
	if err != nil {
		return TranscriptView{}, fmt.Errorf("upload transcript: %w", err)
	}
	s.Logger.WithFields(logrus.Fields{"chat_id": id.String(), "object": objectPath}).Info("transcript exported")
	return TranscriptView{ChatID: id.String(), URL: url}, nil
}

// RenderTranscript writes one line per message, oldest first.
func RenderTranscript(chat *entity.Chat, exportedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chat: %s (%s)\n", chat.Name(), chat.ID())
	fmt.Fprintf(&b, "Created: %s\n", formatTime(chat.CreatedAt()))
	fmt.Fprintf(&b, "Exported: %s\n", formatTime(exportedAt))
	b.WriteString("Participants:\n")
	for _, p := range chat.Participants() {
		fmt.Fprintf(&b, "  - %s\n", p)
	}
	b.WriteString("\n")
	for _, m := range chat.Messages() {
		sender := m.Sender()
		fmt.Fprintf(&b, "[%s] %s <%s>: %s\n", formatTime(m.Timestamp()), sender.Name(), sender.Email(), m.Content())
	}
	return b.String()
}
