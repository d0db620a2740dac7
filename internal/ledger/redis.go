package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKey ключ хеша с журналом уведомлений.
const DefaultKey = "notification_history"

// RedisStore хранит журнал в одном хеше redis: поле - id подписки, значение - день.
type RedisStore struct {
	db  *redis.Client
	key string
}

// NewRedisStore создает хранилище журнала поверх клиента redis.
func NewRedisStore(db *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{db: db, key: key}
}

// Load читает весь хеш.
func (s *RedisStore) Load(ctx context.Context) (map[string]string, error) {
	const op = "ledger.RedisStore.Load"
	entries, err := s.db.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}

// Save записывает все поля одной командой HSET.
func (s *RedisStore) Save(ctx context.Context, entries map[string]string) error {
	const op = "ledger.RedisStore.Save"
	if len(entries) == 0 {
		return nil
	}
	values := make([]any, 0, len(entries)*2)
	for id, day := range entries {
		values = append(values, id, day)
	}
	if err := s.db.HSet(ctx, s.key, values...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
