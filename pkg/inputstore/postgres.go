package inputstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/parley/pkg/runinput"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSchema creates the run_inputs table. seq preserves creation order.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS run_inputs (
	seq        BIGSERIAL PRIMARY KEY,
	run_id     TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (run_id, key)
)`

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// PostgresStore keeps run inputs in a Postgres table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid Postgres DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreFromPool wraps an existing pool.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the run_inputs table if it is missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("failed to create run_inputs table: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Create(ctx context.Context, runID, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_inputs (run_id, key, value) VALUES ($1, $2, $3)`,
		runID, key, value)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("key '%s': %w", key, runinput.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert run input: %w", err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, runID, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM run_inputs WHERE run_id = $1 AND key = $2`,
		runID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("key '%s': %w", key, runinput.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read run input: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) Filter(ctx context.Context, runID, prefix string, limit int, exclude []string) ([]runinput.Record, error) {
	if exclude == nil {
		exclude = []string{}
	}

	query := `SELECT key, value, created_at FROM run_inputs
		WHERE run_id = $1 AND key LIKE $2 ESCAPE '\' AND NOT (key = ANY($3))
		ORDER BY seq ASC`
	args := []any{runID, likePrefix(prefix), exclude}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to filter run inputs: %w", err)
	}
	defer rows.Close()

	var out []runinput.Record
	for rows.Next() {
		var key string
		var value []byte
		var createdAt time.Time
		if err := rows.Scan(&key, &value, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run input: %w", err)
		}
		out = append(out, runinput.Record{Key: key, RunID: runID, Value: value, CreatedAt: createdAt})
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, runID, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM run_inputs WHERE run_id = $1 AND key = $2`,
		runID, key)
	if err != nil {
		return fmt.Errorf("failed to delete run input: %w", err)
	}
	return nil
}

// likePrefix escapes LIKE wildcards so prefix matches literally.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

var _ runinput.Store = (*PostgresStore)(nil)
