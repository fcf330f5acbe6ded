package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/cylestio-dashboard/internal/domain"
	"github.com/xela07ax/cylestio-dashboard/internal/infra"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS dashboard_index (
	resource   TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	payload    JSONB       NOT NULL,
	indexed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (resource, id)
)`

const upsertSQL = `
INSERT INTO dashboard_index (resource, id, payload, indexed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (resource, id) DO UPDATE
SET payload = EXCLUDED.payload, indexed_at = EXCLUDED.indexed_at`

// IndexRepo — хранилище индекса документов бэкенда.
type IndexRepo struct {
	pool *pgxpool.Pool
}

// NewIndexRepo поднимает пул соединений. Доступность проверяем через Ping в main.
func NewIndexRepo(ctx context.Context, cfg infra.DatabaseConfig) (*IndexRepo, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres: database url is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	return &IndexRepo{pool: pool}, nil
}

// EnsureSchema создает таблицу индекса, если ее нет
func (r *IndexRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// Upsert пишет документы одним батчем. Повторная индексация перезаписывает payload.
func (r *IndexRepo) Upsert(ctx context.Context, docs []domain.IndexDocument) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	batch := buildUpsertBatch(docs)
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var affected int64
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return affected, fmt.Errorf("postgres: upsert %s/%s: %w", docs[i].Resource, docs[i].ID, err)
		}
		affected += tag.RowsAffected()
	}
	return affected, nil
}

func buildUpsertBatch(docs []domain.IndexDocument) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, d := range docs {
		// payload уходит в jsonb строкой, без повторной сериализации
		batch.Queue(upsertSQL, d.Resource, d.ID, string(d.Payload), d.IndexedAt)
	}
	return batch
}

// Ping проверяет доступность базы при старте
func (r *IndexRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *IndexRepo) Close() {
	r.pool.Close()
}
