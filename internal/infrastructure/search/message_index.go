package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
	"github.com/oksasatya/go-ddd-chat/internal/domain/repository"
)

const requestTimeout = 3 * time.Second

// chat_id is a keyword so the term filter matches the whole id.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "keyword"},
      "chat_id":      {"type": "keyword"},
      "content":      {"type": "text"},
      "sender_name":  {"type": "text"},
      "sender_email": {"type": "keyword"},
      "sent_at":      {"type": "date"}
    }
  }
}`

type messageDoc struct {
	ID          string    `json:"id"`
	ChatID      string    `json:"chat_id"`
	Content     string    `json:"content"`
	SenderName  string    `json:"sender_name"`
	SenderEmail string    `json:"sender_email"`
	SentAt      time.Time `json:"sent_at"`
}

// MessageIndex keeps sent messages in Elasticsearch and answers full-text
// queries scoped to one chat.
type MessageIndex struct {
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

func NewMessageIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *MessageIndex {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MessageIndex{es: es, index: index, logger: logger}
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (m *MessageIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{m.index}}.Do(c, m.es)
	if err != nil {
		return fmt.Errorf("check index %s: %w", m.index, err)
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = m.es.Indices.Create(m.index,
		m.es.Indices.Create.WithContext(c),
		m.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", m.index, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", m.index, res.Status())
	}
	m.logger.WithField("index", m.index).Info("message index created")
	return nil
}

func (m *MessageIndex) Name() string { return "search_index" }

// Handle indexes the message carried by a MessageSent event.
func (m *MessageIndex) Handle(ctx context.Context, event entity.DomainEvent) error {
	sent, ok := event.(entity.MessageSent)
	if !ok {
		return nil
	}
	msg := sent.Message
	doc := messageDoc{
		ID:          msg.ID().String(),
		ChatID:      sent.ChatID.String(),
		Content:     msg.Content(),
		SenderName:  msg.Sender().Name().String(),
		SenderEmail: msg.Sender().Email().String(),
		SentAt:      msg.Timestamp().UTC(),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req := esapi.IndexRequest{Index: m.index, DocumentID: doc.ID, Body: bytes.NewReader(b), Refresh: "false"}
	res, err := req.Do(c, m.es)
	if err != nil {
		return fmt.Errorf("index message %s: %w", doc.ID, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index message %s: %s", doc.ID, res.Status())
	}
	return nil
}

// Search matches query against message content within one chat, best hits first.
func (m *MessageIndex) Search(ctx context.Context, chatID uuid.UUID, query string, size int) ([]entity.Message, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"match": map[string]any{"content": query},
				},
				"filter": map[string]any{
					"term": map[string]any{"chat_id": chatID.String()},
				},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(body)

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := m.es.Search(m.es.Search.WithContext(c), m.es.Search.WithIndex(m.index), m.es.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		// a chat nobody wrote in yet may run before the index exists
		if res.StatusCode == 404 {
			return []entity.Message{}, nil
		}
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("search %s: %s %s", m.index, res.Status(), msg)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string     `json:"_id"`
				Source messageDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.Message, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		msg, err := h.Source.toMessage()
		if err != nil {
			m.logger.WithError(err).WithField("doc_id", h.ID).Warn("skipping unreadable search hit")
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (d messageDoc) toMessage() (entity.Message, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return entity.Message{}, fmt.Errorf("message id: %w", err)
	}
	sender, err := entity.ParticipantOf(d.SenderName, d.SenderEmail)
	if err != nil {
		return entity.Message{}, err
	}
	return entity.ReconstructMessage(id, d.Content, sender, d.SentAt.UTC()), nil
}

var _ repository.MessageSearcher = (*MessageIndex)(nil)
