package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/gridkit/internal/config"
	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record data is stored as json rather than jsonb so key order survives.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS imports (
    id         uuid PRIMARY KEY,
    entity     text NOT NULL,
    file_name  text,
    row_count  integer NOT NULL,
    created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS imports_entity_idx ON imports (entity, created_at);

CREATE TABLE IF NOT EXISTS imported_records (
    import_id  uuid NOT NULL REFERENCES imports (id) ON DELETE CASCADE,
    entity     text NOT NULL,
    row_number integer NOT NULL,
    data       json NOT NULL,
    PRIMARY KEY (import_id, row_number)
);
CREATE INDEX IF NOT EXISTS imported_records_entity_idx ON imported_records (entity);
`

var recordColumns = []string{"import_id", "entity", "row_number", "data"}

// Postgres stores imports in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens a pool sized from cfg, verifies it and creates the tables.
// Close the returned store when done.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	p := NewPostgres(pool)
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save implements Store. The import row and its records are written in one
// transaction; records go through COPY.
func (p *Postgres) Save(ctx context.Context, b Batch) error {
	id := toPgUUID(b.ImportID)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO imports (id, entity, file_name, row_count) VALUES ($1, $2, $3, $4)`,
		id, b.Entity, toPgText(b.FileName), len(b.Rows),
	)
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"imported_records"},
		recordColumns,
		pgx.CopyFromSlice(len(b.Rows), func(i int) ([]any, error) {
			data, err := b.Rows[i].MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			return []any{id, b.Entity, int32(i + 1), string(data)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy records: %w", err)
	}
	if copied != int64(len(b.Rows)) {
		return fmt.Errorf("copy records: wrote %d of %d rows", copied, len(b.Rows))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List implements Store.
func (p *Postgres) List(ctx context.Context, entity string) ([]*record.Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT r.data::text
		FROM imported_records r
		JOIN imports i ON i.id = r.import_id
		WHERE r.entity = $1
		ORDER BY i.created_at, r.import_id, r.row_number`, entity)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := []*record.Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec := record.New[string]()
		if err := rec.UnmarshalJSON([]byte(data)); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Imports implements Store.
func (p *Postgres) Imports(ctx context.Context, entity string) ([]ImportSummary, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, entity, file_name, row_count, created_at
		FROM imports
		WHERE entity = $1
		ORDER BY created_at DESC`, entity)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	out := []ImportSummary{}
	for rows.Next() {
		var (
			id        pgtype.UUID
			ent       string
			fileName  pgtype.Text
			count     int32
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &ent, &fileName, &count, &createdAt); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, ImportSummary{
			ID:        uuidToString(id),
			Entity:    ent,
			FileName:  fileName.String,
			Rows:      int(count),
			CreatedAt: createdAt.Time,
		})
	}
	return out, rows.Err()
}

// Rollback implements Store.
func (p *Postgres) Rollback(ctx context.Context, importID uuid.UUID) (int, error) {
	var count int32
	err := p.pool.QueryRow(ctx,
		`DELETE FROM imports WHERE id = $1 RETURNING row_count`, toPgUUID(importID),
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrImportNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("rollback import: %w", err)
	}
	return int(count), nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
