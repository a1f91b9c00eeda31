// Package app assembles the service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/vaani/internal/agents"
	"github.com/ent0n29/vaani/internal/config"
	"github.com/ent0n29/vaani/internal/fallback"
	"github.com/ent0n29/vaani/internal/httpapi"
	"github.com/ent0n29/vaani/internal/observability"
	"github.com/ent0n29/vaani/internal/provider"
	"github.com/ent0n29/vaani/internal/session"
	"github.com/ent0n29/vaani/internal/telephony"
	"github.com/ent0n29/vaani/internal/voice"
	"github.com/ent0n29/vaani/internal/voicelib"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Catalog  *provider.Catalog
	Registry *provider.Registry
	Sessions *session.Manager
	Pipeline *voice.Pipeline
	Metrics  *observability.Metrics

	// Cleanup releases the store connections.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, metrics *observability.Metrics) (*BuildResult, error) {
	catalog, err := provider.NewCatalog(chainOverrides(cfg.FallbackChains))
	if err != nil {
		return nil, fmt.Errorf("provider catalog: %w", err)
	}

	registry := provider.NewRegistry()
	if cfg.MockProviders {
		registerMocks(catalog, registry)
		log.Warn().Msg("MOCK_PROVIDERS enabled: all providers are offline mocks")
	} else if err := registerProviders(ctx, cfg, registry); err != nil {
		return nil, err
	}

	invoker := fallback.New(registry,
		fallback.WithTimeouts(fallback.Timeouts{
			STT:        cfg.STTAttemptTimeout,
			LLM:        cfg.LLMAttemptTimeout,
			TTS:        cfg.TTSAttemptTimeout,
			Telephony:  cfg.TelephonyAttemptTimeout,
			VoiceClone: cfg.VoiceCloneAttemptTimeout,
		}),
		fallback.WithRecorder(metrics),
	)

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return nil, err
	}
	agentStore, err := agents.NewStore(ctx, agents.Backends{Kind: cfg.StoreBackend, Postgres: b.pool, Redis: b.redis})
	if err != nil {
		b.close()
		return nil, fmt.Errorf("agent store: %w", err)
	}
	voiceStore, err := voicelib.NewStore(ctx, cfg.StoreBackend, b.pool, b.redis)
	if err != nil {
		_ = agentStore.Close()
		b.close()
		return nil, fmt.Errorf("voice store: %w", err)
	}

	agentService := agents.NewService(agentStore, catalog)
	voiceService := voicelib.NewService(voiceStore, invoker, catalog)
	callService := telephony.NewService(invoker, registry, catalog, cfg.TelephonyAttemptTimeout)
	pipeline := voice.NewPipeline(invoker, catalog,
		voice.Config{ReplyMaxWords: cfg.ReplyMaxWords, ReplyMaxTokens: cfg.ReplyMaxTokens},
		voice.WithFetcher(voice.NewHTTPAudioFetcher(cfg.AudioFetchTimeout)),
		voice.WithMetrics(metrics),
	)
	sessions := session.NewManager(cfg.SessionRetention, metrics)

	api := httpapi.New(httpapi.Deps{
		Config:   cfg,
		Catalog:  catalog,
		Invoker:  invoker,
		Agents:   agentService,
		Voices:   voiceService,
		Calls:    callService,
		Sessions: sessions,
		Runner:   pipeline,
		Metrics:  metrics,
		Ready:    b.ping,
	})

	cleanup := func() error {
		err := agentStore.Close()
		b.close()
		return err
	}

	log.Info().
		Str("store_backend", cfg.StoreBackend).
		Bool("mock_providers", cfg.MockProviders).
		Int("languages", len(catalog.Languages())).
		Msg("service assembled")

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Catalog:  catalog,
		Registry: registry,
		Sessions: sessions,
		Pipeline: pipeline,
		Metrics:  metrics,
		Cleanup:  cleanup,
	}, nil
}

func chainOverrides(raw map[string][]string) map[provider.Capability][]string {
	out := make(map[provider.Capability][]string, len(raw))
	for name, keys := range raw {
		capability, err := provider.ParseCapability(name)
		if err != nil {
			log.Warn().Err(err).Str("capability", name).Msg("ignoring fallback chain override")
			continue
		}
		out[capability] = keys
	}
	return out
}

// backends holds the shared store connections for the configured backend.
type backends struct {
	pool  *pgxpool.Pool
	redis *redis.Client
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		b.pool = pool
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		b.redis = client
	}
	return b, nil
}

func (b *backends) ping(ctx context.Context) error {
	var errs []error
	if b.pool != nil {
		if err := b.pool.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if b.redis != nil {
		if err := b.redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (b *backends) close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}
