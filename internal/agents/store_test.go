package agents

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func sampleAgent(id, lang string, created time.Time) Agent {
	return Agent{
		ID:                id,
		Name:              "Agent " + id,
		SystemInstruction: "You are helpful.",
		Language:          lang,
		LLMProvider:       "groq",
		TTSProvider:       "replicate_xtts",
		STTProvider:       "google_stt",
		Temperature:       0.7,
		MaxTokens:         500,
		Status:            StatusActive,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
}

// exerciseStore runs the behaviour every Store implementation must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	a := sampleAgent("a1", "hi", base)
	b := sampleAgent("a2", "ta", base.Add(time.Second))
	c := sampleAgent("a3", "hi", base.Add(2*time.Second))
	for _, ag := range []Agent{c, a, b} {
		if err := s.Create(ctx, ag); err != nil {
			t.Fatalf("Create(%s) error = %v", ag.ID, err)
		}
	}
	if err := s.Create(ctx, a); !errors.Is(err, ErrInvalid) {
		t.Fatalf("duplicate Create() error = %v, want ErrInvalid", err)
	}

	got, err := s.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != a.Name || got.Temperature != 0.7 || !got.CreatedAt.Equal(base) {
		t.Fatalf("Get() = %+v", got)
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "a1" || all[2].ID != "a3" {
		t.Fatalf("List() ids = %v, want creation order a1,a2,a3", ids(all))
	}

	hindi, err := s.List(ctx, Filter{Language: "hi"})
	if err != nil {
		t.Fatalf("List(hi) error = %v", err)
	}
	if len(hindi) != 2 {
		t.Fatalf("List(hi) = %v, want a1 and a3", ids(hindi))
	}

	got.Language = "ta"
	got.UpdatedAt = base.Add(time.Minute)
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	tamil, _ := s.List(ctx, Filter{Language: "ta"})
	if len(tamil) != 2 {
		t.Fatalf("List(ta) after update = %v, want a1 and a2", ids(tamil))
	}
	if err := s.Update(ctx, sampleAgent("ghost", "hi", base)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update(ghost) error = %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, "a2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "a2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}
	remaining, _ := s.List(ctx, Filter{})
	if len(remaining) != 2 {
		t.Fatalf("List() after delete = %v", ids(remaining))
	}
}

func ids(list []Agent) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func TestInMemoryStore(t *testing.T) {
	exerciseStore(t, NewInMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, NewRedisStore(client, "test:"))
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("VAANI_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("VAANI_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS agents`); err != nil {
		t.Fatalf("reset table error = %v", err)
	}
	s, err := NewPostgresStore(ctx, pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	exerciseStore(t, s)
}

func TestNewStoreRejectsUnknownBackend(t *testing.T) {
	if _, err := NewStore(context.Background(), Backends{Kind: "mongo"}); err == nil {
		t.Fatalf("NewStore(mongo) error = nil")
	}
	if _, err := NewStore(context.Background(), Backends{Kind: "postgres"}); err == nil {
		t.Fatalf("NewStore(postgres without pool) error = nil")
	}
	s, err := NewStore(context.Background(), Backends{})
	if err != nil {
		t.Fatalf("NewStore(default) error = %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("NewStore(default) = %T, want *InMemoryStore", s)
	}
}
