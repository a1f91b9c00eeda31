package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists agents in PostgreSQL. The pool is owned by the caller.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if err := initSchema(ctx, pool); err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			job_role TEXT NOT NULL DEFAULT '',
			system_instruction TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL,
			llm_provider TEXT NOT NULL,
			tts_provider TEXT NOT NULL,
			stt_provider TEXT NOT NULL,
			voice_id TEXT NOT NULL DEFAULT '',
			temperature DOUBLE PRECISION NOT NULL,
			max_tokens INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_agents_language_created ON agents (language, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init agents schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

const agentColumns = `id, name, job_role, system_instruction, language, llm_provider, tts_provider,
	stt_provider, voice_id, temperature, max_tokens, status, created_at, updated_at`

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	var status string
	err := row.Scan(&a.ID, &a.Name, &a.JobRole, &a.SystemInstruction, &a.Language, &a.LLMProvider,
		&a.TTSProvider, &a.STTProvider, &a.VoiceID, &a.Temperature, &a.MaxTokens, &status,
		&a.CreatedAt, &a.UpdatedAt)
	a.Status = Status(status)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Agent, error) {
	a, err := scanAgent(s.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		return Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Create(ctx context.Context, a Agent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO agents (`+agentColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.Name, a.JobRole, a.SystemInstruction, a.Language, a.LLMProvider, a.TTSProvider,
		a.STTProvider, a.VoiceID, a.Temperature, a.MaxTokens, string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, a Agent) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET name=$2, job_role=$3, system_instruction=$4, language=$5, llm_provider=$6,
		 tts_provider=$7, stt_provider=$8, voice_id=$9, temperature=$10, max_tokens=$11, status=$12,
		 updated_at=$13 WHERE id=$1`,
		a.ID, a.Name, a.JobRole, a.SystemInstruction, a.Language, a.LLMProvider, a.TTSProvider,
		a.STTProvider, a.VoiceID, a.Temperature, a.MaxTokens, string(a.Status), a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents
		 WHERE ($1 = '' OR language = $1) AND ($2 = '' OR status = $2)
		 ORDER BY created_at, id`,
		filter.Language, string(filter.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent rows: %w", err)
	}
	return out, nil
}

// Close is a no-op; the shared pool is closed by its owner.
func (s *PostgresStore) Close() error { return nil }
