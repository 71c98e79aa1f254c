package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stateKeyPattern  = "ledger:state:%d"
	stateScanPattern = "ledger:state:[0-9]*"
	stateScanBatch   = 100
	defaultStateTTL  = 30 * time.Minute
)

// RedisStorage keeps one JSON document per member. Every write resets the
// TTL so an abandoned draft expires on its own.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

var _ Storage = (*RedisStorage)(nil)

func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisStorage) Load(ctx context.Context, userID int64) (*UserState, error) {
	data, err := s.client.Get(ctx, stateKey(userID)).Bytes()
	return s.decode(userID, data, err)
}

func (s *RedisStorage) Take(ctx context.Context, userID int64) (*UserState, error) {
	data, err := s.client.GetDel(ctx, stateKey(userID)).Bytes()
	return s.decode(userID, data, err)
}

func (s *RedisStorage) Save(ctx context.Context, st *UserState) error {
	st.UpdatedAt = s.now().UTC()

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state for user %d: %w", st.UserID, err)
	}

	if err := s.client.Set(ctx, stateKey(st.UserID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save state", slog.Int64("user_id", st.UserID), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		s.log.Error("failed to delete state", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}
	return nil
}

// List scans every stored state. Undecodable entries are logged and skipped.
func (s *RedisStorage) List(ctx context.Context) ([]*UserState, error) {
	var result []*UserState

	iter := s.client.Scan(ctx, 0, stateScanPattern, stateScanBatch).Iterator()
	keys := make([]string, 0, stateScanBatch)

	fetch := func() error {
		if len(keys) == 0 {
			return nil
		}
		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("fetch states: %w", err)
		}
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				// expired between SCAN and MGET
				continue
			}
			var st UserState
			if err := json.Unmarshal([]byte(raw), &st); err != nil {
				s.log.Warn("skipping undecodable state", slog.String("key", keys[i]), slog.Any("error", err))
				continue
			}
			result = append(result, &st)
		}
		keys = keys[:0]
		return nil
	}

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == stateScanBatch {
			if err := fetch(); err != nil {
				return nil, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan states: %w", err)
	}
	if err := fetch(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *RedisStorage) decode(userID int64, data []byte, err error) (*UserState, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		s.log.Error("failed to read state", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	var st UserState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state for user %d: %w", userID, err)
	}
	return &st, nil
}

func stateKey(userID int64) string {
	return fmt.Sprintf(stateKeyPattern, userID)
}
