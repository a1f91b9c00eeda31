package agents

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Backends carries the shared connections a store may be built on.
type Backends struct {
	Kind     string
	Postgres *pgxpool.Pool
	Redis    *redis.Client
}

// NewStore picks the store for the configured backend kind.
func NewStore(ctx context.Context, b Backends) (Store, error) {
	switch b.Kind {
	case "", "memory":
		return NewInMemoryStore(), nil
	case "postgres":
		if b.Postgres == nil {
			return nil, fmt.Errorf("agents: postgres backend without pool")
		}
		return NewPostgresStore(ctx, b.Postgres)
	case "redis":
		if b.Redis == nil {
			return nil, fmt.Errorf("agents: redis backend without client")
		}
		return NewRedisStore(b.Redis, ""), nil
	default:
		return nil, fmt.Errorf("agents: unknown store backend %q", b.Kind)
	}
}
