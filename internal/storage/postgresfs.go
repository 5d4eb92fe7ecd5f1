package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const blobTableDDL = `
CREATE TABLE IF NOT EXISTS ocpp_blobs (
	key        text PRIMARY KEY,
	value      bytea NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// PostgresFilesystem backs the blob namespace with a single table in
// Postgres, useful when a gateway process supervises many
// simulated/virtual charge points and wants their persisted state in
// one durable store instead of scattered across per-process disks.
// Grounded on the teacher's backend/libs/db (pgx/v5 pool, connection
// validated at construction) and csms/internal/storage repository
// (INSERT ... ON CONFLICT DO UPDATE for atomic replace).
type PostgresFilesystem struct {
	pool *pgxpool.Pool
}

// NewPostgresFilesystem dials dsn, ensures the backing table exists,
// and validates the connection with a ping-equivalent query.
func NewPostgresFilesystem(ctx context.Context, dsn string) (*PostgresFilesystem, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("storage: empty postgres DSN")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, blobTableDDL); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresFilesystem{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (fs *PostgresFilesystem) Close() { fs.pool.Close() }

func (fs *PostgresFilesystem) WriteFile(ctx context.Context, key string, data []byte) error {
	_, err := fs.pool.Exec(ctx, `
		INSERT INTO ocpp_blobs (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, data)
	return err
}

func (fs *PostgresFilesystem) ReadFile(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := fs.pool.QueryRow(ctx, `SELECT value FROM ocpp_blobs WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotExist(key)
		}
		return nil, err
	}
	return data, nil
}

func (fs *PostgresFilesystem) Remove(ctx context.Context, key string) error {
	_, err := fs.pool.Exec(ctx, `DELETE FROM ocpp_blobs WHERE key = $1`, key)
	return err
}

func (fs *PostgresFilesystem) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := fs.pool.Query(ctx, `SELECT key FROM ocpp_blobs WHERE key LIKE $1 ORDER BY key`, prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
