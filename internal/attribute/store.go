// Package attribute stores per-account key/value attributes.
package attribute

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps attributes in the account_attributes table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get returns the value stored under key. The bool is false when the key is absent.
func (s *PostgresStore) Get(ctx context.Context, accountID int64, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM account_attributes WHERE account_id = $1 AND key = $2`,
		accountID, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading attribute %q: %w", key, err)
	}
	return value, true, nil
}

// SetAll upserts every key of values in one transaction. Either all keys are
// written or none is.
func (s *PostgresStore) SetAll(ctx context.Context, accountID int64, values map[string]string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for key, value := range values {
			_, err := tx.Exec(ctx, `
				INSERT INTO account_attributes (account_id, key, value)
				VALUES ($1, $2, $3)
				ON CONFLICT (account_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
				accountID, key, value)
			if err != nil {
				return fmt.Errorf("writing attribute %q: %w", key, err)
			}
		}
		return nil
	})
}

// DeleteAll removes the given keys of one account. Absent keys are not an error.
func (s *PostgresStore) DeleteAll(ctx context.Context, accountID int64, keys ...string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM account_attributes WHERE account_id = $1 AND key = ANY($2)`,
		accountID, keys)
	if err != nil {
		return fmt.Errorf("deleting attributes: %w", err)
	}
	return nil
}

// DeleteEverywhere removes the given keys from every account and reports how many rows went away.
func (s *PostgresStore) DeleteEverywhere(ctx context.Context, keys ...string) (int64, error) {
	result, err := s.pool.Exec(ctx,
		`DELETE FROM account_attributes WHERE key = ANY($1)`, keys)
	if err != nil {
		return 0, fmt.Errorf("purging attributes: %w", err)
	}
	return result.RowsAffected(), nil
}
