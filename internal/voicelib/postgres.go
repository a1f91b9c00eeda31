package voicelib

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS cloned_voices (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		samples_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cloned_voices_user ON cloned_voices (user_id, created_at);`)
	if err != nil {
		return nil, fmt.Errorf("init voices schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

const voiceColumns = `id, user_id, name, provider, reference, language, samples_count, status, error, created_at`

func scanVoice(row pgx.Row) (Voice, error) {
	var v Voice
	var status string
	err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.Provider, &v.Reference, &v.Language,
		&v.SamplesCount, &status, &v.Error, &v.CreatedAt)
	v.Status = Status(status)
	v.CreatedAt = v.CreatedAt.UTC()
	return v, err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Voice, error) {
	v, err := scanVoice(s.pool.QueryRow(ctx, `SELECT `+voiceColumns+` FROM cloned_voices WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Voice{}, ErrNotFound
	}
	if err != nil {
		return Voice{}, fmt.Errorf("get voice: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) Save(ctx context.Context, v Voice) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cloned_voices (`+voiceColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (id) DO UPDATE SET provider=EXCLUDED.provider, reference=EXCLUDED.reference,
		 status=EXCLUDED.status, error=EXCLUDED.error`,
		v.ID, v.UserID, v.Name, v.Provider, v.Reference, v.Language, v.SamplesCount, string(v.Status), v.Error, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save voice: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cloned_voices WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete voice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Voice, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+voiceColumns+` FROM cloned_voices WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	defer rows.Close()
	out := make([]Voice, 0)
	for rows.Next() {
		v, err := scanVoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voice row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
