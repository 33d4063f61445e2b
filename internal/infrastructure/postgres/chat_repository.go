package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
	"github.com/oksasatya/go-ddd-chat/internal/domain/repository"
)

const (
	insertChatSQL = `
		INSERT INTO chats (id, name, created_at, version)
		VALUES ($1, $2, $3, $4)`

	updateChatSQL = `
		UPDATE chats SET name = $2, version = version + 1
		WHERE id = $1 AND version = $3`

	upsertParticipantSQL = `
		INSERT INTO chat_participants (chat_id, email, name, position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id, email) DO NOTHING`

	insertMessageSQL = `
		INSERT INTO chat_messages (id, chat_id, content, sender_name, sender_email, sent_at, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	selectChatSQL = `
		SELECT id, name, created_at, version
		FROM chats
		WHERE id = $1`

	selectAllChatsSQL = `
		SELECT id, name, created_at, version
		FROM chats
		ORDER BY created_at, id`

	selectParticipantsSQL = `
		SELECT chat_id, name, email
		FROM chat_participants
		WHERE chat_id = ANY($1)
		ORDER BY chat_id, position`

	selectMessagesSQL = `
		SELECT chat_id, id, content, sender_name, sender_email, sent_at
		FROM chat_messages
		WHERE chat_id = ANY($1)
		ORDER BY chat_id, sent_at, position`

	deleteChatSQL = `DELETE FROM chats WHERE id = $1`

	existsChatSQL = `SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1)`
)

// ChatRepository stores Chat aggregates across three tables. Messages and
// participants are append-only, so a save only inserts the rows appended
// since the aggregate was loaded or last saved.
type ChatRepository struct {
	db DB
	tx *TxManager
}

func NewChatRepository(db DB) *ChatRepository {
	return &ChatRepository{db: db, tx: NewTxManager(db)}
}

// Save writes the chat at version+1. A chat loaded at version v is rejected
// with a ConflictError when the stored row is no longer at v.
func (r *ChatRepository) Save(ctx context.Context, chat *entity.Chat) error {
	next := chat.Version() + 1
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := QuerierFromCtx(ctx, r.db)

		if chat.Version() == 0 {
			if _, err := q.Exec(ctx, insertChatSQL, chat.ID(), chat.Name(), chat.CreatedAt(), next); err != nil {
				return mapError(err, chat.ID())
			}
		} else {
			tag, err := q.Exec(ctx, updateChatSQL, chat.ID(), chat.Name(), chat.Version())
			if err != nil {
				return mapError(err, chat.ID())
			}
			if tag.RowsAffected() == 0 {
				return &entity.ConflictError{ChatID: chat.ID(), ExpectedVersion: chat.Version()}
			}
		}

		parts, pfrom := chat.UnsavedParticipants()
		for i, p := range parts {
			if _, err := q.Exec(ctx, upsertParticipantSQL, chat.ID(), p.Email().String(), p.Name().String(), pfrom+i); err != nil {
				return mapError(err, chat.ID())
			}
		}
		msgs, mfrom := chat.UnsavedMessages()
		for i, m := range msgs {
			sender := m.Sender()
			if _, err := q.Exec(ctx, insertMessageSQL,
				m.ID(), chat.ID(), m.Content(), sender.Name().String(), sender.Email().String(), m.Timestamp(), mfrom+i,
			); err != nil {
				return mapError(err, chat.ID())
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	chat.MarkSaved(next)
	return nil
}

func (r *ChatRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Chat, error) {
	q := QuerierFromCtx(ctx, r.db)

	var h chatHeader
	if err := q.QueryRow(ctx, selectChatSQL, id).Scan(&h.id, &h.name, &h.createdAt, &h.version); err != nil {
		return nil, mapError(err, id)
	}

	chats, err := r.hydrate(ctx, q, []chatHeader{h})
	if err != nil {
		return nil, err
	}
	return chats[0], nil
}

func (r *ChatRepository) FindAll(ctx context.Context) ([]*entity.Chat, error) {
	q := QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, selectAllChatsSQL)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var headers []chatHeader
	for rows.Next() {
		var h chatHeader
		if err := rows.Scan(&h.id, &h.name, &h.createdAt, &h.version); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	if len(headers) == 0 {
		return []*entity.Chat{}, nil
	}
	return r.hydrate(ctx, q, headers)
}

// DeleteByID removes the chat with its participants and messages.
func (r *ChatRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	tag, err := QuerierFromCtx(ctx, r.db).Exec(ctx, deleteChatSQL, id)
	if err != nil {
		return mapError(err, id)
	}
	if tag.RowsAffected() == 0 {
		return entity.NewChatNotFound(id)
	}
	return nil
}

func (r *ChatRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	if err := QuerierFromCtx(ctx, r.db).QueryRow(ctx, existsChatSQL, id).Scan(&ok); err != nil {
		return false, mapError(err, id)
	}
	return ok, nil
}

type chatHeader struct {
	id        uuid.UUID
	name      string
	createdAt time.Time
	version   int
}

// hydrate loads participants and messages for every header and rebuilds the
// aggregates in header order.
func (r *ChatRepository) hydrate(ctx context.Context, q Querier, headers []chatHeader) ([]*entity.Chat, error) {
	ids := make([]uuid.UUID, len(headers))
	for i, h := range headers {
		ids[i] = h.id
	}

	participants, err := loadParticipants(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	messages, err := loadMessages(ctx, q, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*entity.Chat, 0, len(headers))
	for _, h := range headers {
		out = append(out, entity.ReconstructChat(h.id, h.name, participants[h.id], messages[h.id], h.createdAt, h.version))
	}
	return out, nil
}

func loadParticipants(ctx context.Context, q Querier, ids []uuid.UUID) (map[uuid.UUID][]entity.Participant, error) {
	rows, err := q.Query(ctx, selectParticipantsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]entity.Participant, len(ids))
	for rows.Next() {
		var (
			chatID      uuid.UUID
			name, email string
		)
		if err := rows.Scan(&chatID, &name, &email); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p, err := entity.ParticipantOf(name, email)
		if err != nil {
			return nil, fmt.Errorf("chat %s: stored participant %q: %w", chatID, email, err)
		}
		out[chatID] = append(out[chatID], p)
	}
	return out, rows.Err()
}

func loadMessages(ctx context.Context, q Querier, ids []uuid.UUID) (map[uuid.UUID][]entity.Message, error) {
	rows, err := q.Query(ctx, selectMessagesSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]entity.Message, len(ids))
	for rows.Next() {
		var (
			chatID, msgID                  uuid.UUID
			content, senderName, senderEml string
			sentAt                         time.Time
		)
		if err := rows.Scan(&chatID, &msgID, &content, &senderName, &senderEml, &sentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		sender, err := entity.ParticipantOf(senderName, senderEml)
		if err != nil {
			return nil, fmt.Errorf("chat %s: stored sender of message %s: %w", chatID, msgID, err)
		}
		out[chatID] = append(out[chatID], entity.ReconstructMessage(msgID, content, sender, sentAt.UTC()))
	}
	return out, rows.Err()
}

var _ repository.ChatRepository = (*ChatRepository)(nil)

// pgx.Tx must keep satisfying Querier for QuerierFromCtx.
var _ Querier = (pgx.Tx)(nil)
