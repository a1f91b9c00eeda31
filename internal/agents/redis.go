package agents

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per agent plus set indexes for listing by language.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "vaani:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix + "agent:"}
}

func (s *RedisStore) agentKey(id string) string      { return s.keyPrefix + "data:" + id }
func (s *RedisStore) allKey() string                 { return s.keyPrefix + "all" }
func (s *RedisStore) languageKey(lang string) string { return s.keyPrefix + "lang:" + lang }

func toHash(a Agent) map[string]any {
	return map[string]any{
		"id":                 a.ID,
		"name":               a.Name,
		"job_role":           a.JobRole,
		"system_instruction": a.SystemInstruction,
		"language":           a.Language,
		"llm_provider":       a.LLMProvider,
		"tts_provider":       a.TTSProvider,
		"stt_provider":       a.STTProvider,
		"voice_id":           a.VoiceID,
		"temperature":        strconv.FormatFloat(a.Temperature, 'f', -1, 64),
		"max_tokens":         strconv.Itoa(a.MaxTokens),
		"status":             string(a.Status),
		"created_at":         a.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":         a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromHash(h map[string]string) (Agent, error) {
	a := Agent{
		ID:                h["id"],
		Name:              h["name"],
		JobRole:           h["job_role"],
		SystemInstruction: h["system_instruction"],
		Language:          h["language"],
		LLMProvider:       h["llm_provider"],
		TTSProvider:       h["tts_provider"],
		STTProvider:       h["stt_provider"],
		VoiceID:           h["voice_id"],
		Status:            Status(h["status"]),
	}
	var err error
	if a.Temperature, err = strconv.ParseFloat(h["temperature"], 64); err != nil {
		return Agent{}, fmt.Errorf("decode temperature: %w", err)
	}
	if a.MaxTokens, err = strconv.Atoi(h["max_tokens"]); err != nil {
		return Agent{}, fmt.Errorf("decode max_tokens: %w", err)
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, h["created_at"]); err != nil {
		return Agent{}, fmt.Errorf("decode created_at: %w", err)
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339Nano, h["updated_at"]); err != nil {
		return Agent{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return a, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Agent, error) {
	h, err := s.client.HGetAll(ctx, s.agentKey(id)).Result()
	if err != nil {
		return Agent{}, fmt.Errorf("get agent: %w", err)
	}
	if len(h) == 0 {
		return Agent{}, ErrNotFound
	}
	return fromHash(h)
}

func (s *RedisStore) Create(ctx context.Context, a Agent) error {
	created, err := s.client.HSetNX(ctx, s.agentKey(a.ID), "id", a.ID).Result()
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	if !created {
		return fmt.Errorf("%w: id %s already exists", ErrInvalid, a.ID)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.agentKey(a.ID), toHash(a))
		pipe.ZAdd(ctx, s.allKey(), redis.Z{Score: float64(a.CreatedAt.UnixNano()), Member: a.ID})
		pipe.SAdd(ctx, s.languageKey(a.Language), a.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, a Agent) error {
	old, err := s.Get(ctx, a.ID)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.agentKey(a.ID), toHash(a))
		if old.Language != a.Language {
			pipe.SRem(ctx, s.languageKey(old.Language), a.ID)
			pipe.SAdd(ctx, s.languageKey(a.Language), a.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	old, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.agentKey(id))
		pipe.ZRem(ctx, s.allKey(), id)
		pipe.SRem(ctx, s.languageKey(old.Language), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, filter Filter) ([]Agent, error) {
	ids, err := s.client.ZRange(ctx, s.allKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	var inLanguage map[string]bool
	if filter.Language != "" {
		members, err := s.client.SMembers(ctx, s.languageKey(filter.Language)).Result()
		if err != nil {
			return nil, fmt.Errorf("list agents by language: %w", err)
		}
		inLanguage = make(map[string]bool, len(members))
		for _, m := range members {
			inLanguage[m] = true
		}
	}

	out := make([]Agent, 0, len(ids))
	for _, id := range ids {
		if inLanguage != nil && !inLanguage[id] {
			continue
		}
		a, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.Match(a) {
			out = append(out, a)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the shared client is closed by its owner.
func (s *RedisStore) Close() error { return nil }
