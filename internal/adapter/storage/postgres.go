package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rotisserie/eris"
)

// PostgresStore implements Store over a single engine_kv table:
//
//	CREATE TABLE IF NOT EXISTS engine_kv (
//	    key   TEXT PRIMARY KEY,
//	    value JSONB NOT NULL
//	);
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed store on an existing pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the engine_kv table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS engine_kv (
			key   TEXT PRIMARY KEY,
			value JSONB NOT NULL
		)
	`)
	if err != nil {
		return eris.Wrap(err, "creating engine_kv table")
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(ctx, `SELECT value FROM engine_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "getting key %s", key)
	}
	return value, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO engine_kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2
	`, key, value)
	if err != nil {
		return eris.Wrapf(err, "putting key %s", key)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM engine_kv WHERE key = $1`, key)
	if err != nil {
		return eris.Wrapf(err, "deleting key %s", key)
	}
	return nil
}

func (s *PostgresStore) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	// LIKE special characters in the prefix must not act as wildcards.
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)

	rows, err := s.db.Query(ctx, `SELECT key, value FROM engine_kv WHERE key LIKE $1`, escaped+"%")
	if err != nil {
		return nil, eris.Wrapf(err, "scanning prefix %s", prefix)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, eris.Wrap(err, "scanning row")
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterating rows")
	}
	return out, nil
}
