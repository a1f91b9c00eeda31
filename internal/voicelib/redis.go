package voicelib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each voice as a JSON value with a per-user sorted index.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "vaani:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix + "voice:"}
}

func (s *RedisStore) voiceKey(id string) string { return s.keyPrefix + "data:" + id }
func (s *RedisStore) userKey(uid string) string { return s.keyPrefix + "user:" + uid }

func (s *RedisStore) Get(ctx context.Context, id string) (Voice, error) {
	raw, err := s.client.Get(ctx, s.voiceKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Voice{}, ErrNotFound
	}
	if err != nil {
		return Voice{}, fmt.Errorf("get voice: %w", err)
	}
	var v Voice
	if err := json.Unmarshal(raw, &v); err != nil {
		return Voice{}, fmt.Errorf("decode voice: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Save(ctx context.Context, v Voice) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode voice: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.voiceKey(v.ID), data, 0)
		pipe.ZAdd(ctx, s.userKey(v.UserID), redis.Z{Score: float64(v.CreatedAt.UnixNano()), Member: v.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save voice: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	v, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.voiceKey(id))
		pipe.ZRem(ctx, s.userKey(v.UserID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete voice: %w", err)
	}
	return nil
}

func (s *RedisStore) ListByUser(ctx context.Context, userID string) ([]Voice, error) {
	ids, err := s.client.ZRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	out := make([]Voice, 0, len(ids))
	for _, id := range ids {
		v, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
