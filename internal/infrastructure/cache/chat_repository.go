package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
	"github.com/oksasatya/go-ddd-chat/internal/domain/repository"
	"github.com/oksasatya/go-ddd-chat/pkg/helpers"
)

const (
	defaultTTL = 5 * time.Minute

	fieldVersion = "v"
	fieldData    = "data"

	// tombstoneVersion outranks any real version, so no late write can
	// resurrect a deleted chat. Kept below 2^53 for Lua's number type.
	tombstoneVersion = 1 << 52
)

func chatKey(id uuid.UUID) string {
	return "chat:snapshot:" + id.String()
}

// Snapshots are stored as a hash {v, data}. A write only lands when it is
// newer than what is cached, so a slow reader holding an old version cannot
// overwrite the snapshot a later save produced.
var putIfNewerScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "v")
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
  return 0
end
redis.call("HSET", KEYS[1], "v", ARGV[1], "data", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`)

// ChatRepository is a read-through Redis cache in front of another
// ChatRepository. Redis errors are logged and the call falls through to the
// wrapped store, so the cache never changes the outcome of an operation.
type ChatRepository struct {
	next   repository.ChatRepository
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *logrus.Logger
}

func NewChatRepository(next repository.ChatRepository, rdb redis.Cmdable, ttl time.Duration, logger *logrus.Logger) *ChatRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ChatRepository{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// Save refreshes the snapshot at the saved version. A conflict means the
// caller worked from a stale copy, which may have come from here, so the
// entry is dropped and the next read goes to the store.
func (r *ChatRepository) Save(ctx context.Context, chat *entity.Chat) error {
	if err := r.next.Save(ctx, chat); err != nil {
		if errors.Is(err, entity.ErrConflict) {
			r.evict(ctx, chat.ID())
		}
		return err
	}
	r.put(ctx, chat.ID(), chat.Version(), snapshotOf(chat))
	return nil
}

func (r *ChatRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Chat, error) {
	var snap chatSnapshot
	found, err := helpers.RedisHGetJSON(ctx, r.rdb, chatKey(id), fieldData, &snap)
	if err != nil {
		r.warn(err, id, "chat cache read failed")
	}
	if found {
		chat, rErr := snap.restore()
		if rErr == nil {
			return chat, nil
		}
		r.warn(rErr, id, "discarding unreadable cached chat")
		r.evict(ctx, id)
	}

	chat, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.put(ctx, id, chat.Version(), snapshotOf(chat))
	return chat, nil
}

func (r *ChatRepository) FindAll(ctx context.Context) ([]*entity.Chat, error) {
	return r.next.FindAll(ctx)
}

// DeleteByID leaves a tombstone for the TTL instead of a plain delete, which
// a concurrent read-through could otherwise refill.
func (r *ChatRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := r.next.DeleteByID(ctx, id); err != nil {
		return err
	}
	r.write(ctx, id, tombstoneVersion, nil)
	return nil
}

func (r *ChatRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.rdb.HStrLen(ctx, chatKey(id), fieldData).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	return r.next.ExistsByID(ctx, id)
}

func (r *ChatRepository) put(ctx context.Context, id uuid.UUID, version int, snap chatSnapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		r.warn(err, id, "chat cache encode failed")
		return
	}
	r.write(ctx, id, version, b)
}

func (r *ChatRepository) write(ctx context.Context, id uuid.UUID, version int, data []byte) {
	args := []any{strconv.Itoa(version), data, r.ttl.Milliseconds()}
	if err := putIfNewerScript.Run(ctx, r.rdb, []string{chatKey(id)}, args...).Err(); err != nil {
		r.warn(err, id, "chat cache write failed")
	}
}

func (r *ChatRepository) evict(ctx context.Context, id uuid.UUID) {
	if err := helpers.RedisDel(ctx, r.rdb, chatKey(id)); err != nil {
		r.warn(err, id, "chat cache evict failed")
	}
}

func (r *ChatRepository) warn(err error, id uuid.UUID, msg string) {
	if r.logger != nil {
		r.logger.WithError(err).WithField("chat_id", id.String()).Warn(msg)
	}
}

var _ repository.ChatRepository = (*ChatRepository)(nil)
