package voicelib

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// NewStore picks the voice store matching the agent store backend.
func NewStore(ctx context.Context, kind string, pool *pgxpool.Pool, client *redis.Client) (Store, error) {
	switch kind {
	case "", "memory":
		return NewInMemoryStore(), nil
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("voicelib: postgres backend without pool")
		}
		return NewPostgresStore(ctx, pool)
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("voicelib: redis backend without client")
		}
		return NewRedisStore(client, ""), nil
	default:
		return nil, fmt.Errorf("voicelib: unknown store backend %q", kind)
	}
}
