package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type pgStore struct {
	pool       *pgxpool.Pool
	id         string
	table      string
	tableIdent string
	dimension  int
	maxTopK    int
}

func newPGStore(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("vectordb config is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("vectordb %q: failed to connect to postgres: %w", cfg.ID, err)
	}
	store := &pgStore{
		pool:      pool,
		id:        cfg.ID,
		table:     chooseTable(cfg),
		dimension: cfg.Dimension,
		maxTopK:   cfg.MaxTopK,
	}
	store.tableIdent = pgx.Identifier{store.table}.Sanitize()
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	trackVectorPool(cfg.ID, pool)
	return store, nil
}

func chooseTable(cfg *Config) string {
	if cfg.Table != "" {
		return cfg.Table
	}
	if cfg.Collection != "" {
		return cfg.Collection
	}
	return "document_chunks"
}

func (p *pgStore) ensureSchema(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("pgvector: acquire connection: %w", err)
	}
	defer conn.Release()
	if _, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: enable extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		embedding vector(%d),
		document TEXT,
		metadata JSONB,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`, p.tableIdent, p.dimension)
	if _, err = conn.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: create table: %w", err)
	}
	return nil
}

func (p *pgStore) Insert(ctx context.Context, records []Record) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, txErr := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if txErr != nil {
		return fmt.Errorf("pgvector: begin tx: %w", txErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("pgvector: rollback failed: %w; original error: %v", rbErr, err)
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("pgvector: commit: %w", commitErr)
			}
		}
	}()
	stmt := fmt.Sprintf(`INSERT INTO %s (id, embedding, document, metadata, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    embedding = excluded.embedding,
    document = excluded.document,
    metadata = excluded.metadata,
    updated_at = excluded.updated_at`, p.tableIdent)
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) != p.dimension {
			return fmt.Errorf(
				"pgvector: record %q dimension mismatch (got %d want %d)",
				rec.ID,
				len(rec.Embedding),
				p.dimension,
			)
		}
		vector := pgvector.NewVector(rec.Embedding)
		metadata, marshalErr := json.Marshal(rec.Metadata)
		if marshalErr != nil {
			return fmt.Errorf("pgvector: marshal metadata for %q: %w", rec.ID, marshalErr)
		}
		if _, execErr := tx.Exec(ctx, stmt, rec.ID, vector, rec.Text, metadata, time.Now().UTC()); execErr != nil {
			return fmt.Errorf("pgvector: insert %q: %w", rec.ID, execErr)
		}
	}
	return nil
}

func (p *pgStore) Query(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	if len(embedding) != p.dimension {
		return nil, errors.New("pgvector: query dimension mismatch")
	}
	topK = clampTopK(topK, p.maxTopK)
	started := time.Now()
	stmt := fmt.Sprintf(
		"SELECT id, document, metadata, embedding <=> $1 AS distance FROM %s ORDER BY distance ASC LIMIT $2",
		p.tableIdent,
	)
	rows, err := p.pool.Query(ctx, stmt, pgvector.NewVector(embedding), topK)
	if err != nil {
		recordVectorError(ctx, "query", "pgvector")
		return nil, fmt.Errorf("pgvector: query: %w", err)
	}
	defer rows.Close()
	results := make([]Match, 0, topK)
	for rows.Next() {
		var (
			id          string
			document    string
			metadataRaw []byte
			distance    float64
		)
		if err := rows.Scan(&id, &document, &metadataRaw, &distance); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		meta := make(map[string]any)
		if len(metadataRaw) > 0 {
			if unmarshalErr := json.Unmarshal(metadataRaw, &meta); unmarshalErr != nil {
				return nil, fmt.Errorf("pgvector: decode metadata: %w", unmarshalErr)
			}
		}
		results = append(results, Match{
			ID:       id,
			Distance: distance,
			Text:     document,
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		recordVectorError(ctx, "query", "pgvector")
		return nil, fmt.Errorf("pgvector: query rows: %w", err)
	}
	recordVectorQuery(ctx, string(ProviderPGVector), topK, time.Since(started), len(results))
	return results, nil
}

func (p *pgStore) Count(ctx context.Context) (int, error) {
	var count int
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s", p.tableIdent)
	if err := p.pool.QueryRow(ctx, stmt).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgvector: count: %w", err)
	}
	return count, nil
}

func (p *pgStore) Scan(ctx context.Context) ([]Entry, error) {
	stmt := fmt.Sprintf("SELECT id, metadata FROM %s ORDER BY id", p.tableIdent)
	rows, err := p.pool.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("pgvector: scan: %w", err)
	}
	defer rows.Close()
	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			id          string
			metadataRaw []byte
		)
		if err := rows.Scan(&id, &metadataRaw); err != nil {
			return nil, fmt.Errorf("pgvector: scan row: %w", err)
		}
		meta := make(map[string]any)
		if len(metadataRaw) > 0 {
			if unmarshalErr := json.Unmarshal(metadataRaw, &meta); unmarshalErr != nil {
				return nil, fmt.Errorf("pgvector: decode metadata: %w", unmarshalErr)
			}
		}
		entries = append(entries, Entry{ID: id, Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: scan rows: %w", err)
	}
	return entries, nil
}

func (p *pgStore) Close(_ context.Context) error {
	untrackVectorPool(p.id)
	p.pool.Close()
	return nil
}
