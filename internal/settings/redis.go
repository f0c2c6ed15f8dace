package settings

import (
	"context"
	"fmt"
	"strconv"

	redis "github.com/redis/go-redis/v9"
)

const (
	fieldLanguage         = "language"
	fieldAutoInsert       = "autoInsert"
	fieldConfirmBeforeAdd = "confirmBeforeAdd"
)

// RedisStore keeps settings in a hash at <prefix><user>.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

func NewRedisStore(client redis.Cmdable, prefix, user string) *RedisStore {
	return &RedisStore{client: client, key: prefix + user}
}

// Key returns the hash key.
func (r *RedisStore) Key() string { return r.key }

func (r *RedisStore) Load(ctx context.Context) (Settings, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Settings{}, fmt.Errorf("redis HGETALL %s: %w", r.key, err)
	}
	return fromHash(fields).Normalize()
}

func (r *RedisStore) Save(ctx context.Context, s Settings) error {
	normalized, err := s.Normalize()
	if err != nil {
		return err
	}
	if err := r.client.HSet(ctx, r.key, toHash(normalized)).Err(); err != nil {
		return fmt.Errorf("redis HSET %s: %w", r.key, err)
	}
	return nil
}

func toHash(s Settings) map[string]interface{} {
	return map[string]interface{}{
		fieldLanguage:         s.Language,
		fieldAutoInsert:       strconv.FormatBool(s.AutoInsert),
		fieldConfirmBeforeAdd: strconv.FormatBool(s.ConfirmBeforeAdd),
	}
}

// fromHash starts from Defaults so missing or malformed fields keep their default.
func fromHash(fields map[string]string) Settings {
	s := Defaults()
	if v, ok := fields[fieldLanguage]; ok && v != "" {
		s.Language = v
	}
	if b, err := strconv.ParseBool(fields[fieldAutoInsert]); err == nil {
		s.AutoInsert = b
	}
	if b, err := strconv.ParseBool(fields[fieldConfirmBeforeAdd]); err == nil {
		s.ConfirmBeforeAdd = b
	}
	return s
}
