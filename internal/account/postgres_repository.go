package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Repository backed by the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// selectAccounts reads accounts with their tiers aggregated in registry order.
const selectAccounts = `
	SELECT a.id, a.name, a.api_key_prefix, a.api_key_hash, a.created_at, a.updated_at,
	       COALESCE(array_agg(ats.tier_id ORDER BY t.position) FILTER (WHERE ats.tier_id IS NOT NULL), '{}')
	FROM accounts a
	LEFT JOIN account_tiers ats ON ats.account_id = a.id
	LEFT JOIN tiers t ON t.id = ats.tier_id`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.APIKeyPrefix, &a.APIKeyHash, &a.CreatedAt, &a.UpdatedAt, &a.Tiers)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]Account, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rows: %w", err)
	}

	if accounts == nil {
		accounts = []Account{}
	}

	return accounts, nil
}

// Create inserts a new account and the tiers it holds in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, a *Account) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO accounts (name, api_key_prefix, api_key_hash)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at`,
			a.Name, a.APIKeyPrefix, a.APIKeyHash,
		).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateName
			}
			return fmt.Errorf("inserting account: %w", err)
		}

		return replaceTiers(ctx, tx, a.ID, a.Tiers)
	})
}

// GetByID retrieves a single account by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, selectAccounts+` WHERE a.id = $1 GROUP BY a.id`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return a, nil
}

// FindByPrefix returns the accounts whose API key starts with the given prefix.
func (r *PostgresRepository) FindByPrefix(ctx context.Context, prefix string) ([]Account, error) {
	return r.queryAccounts(ctx, selectAccounts+` WHERE a.api_key_prefix = $1 GROUP BY a.id`, prefix)
}

// List retrieves all accounts ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]Account, error) {
	return r.queryAccounts(ctx, selectAccounts+` GROUP BY a.id ORDER BY a.id ASC`)
}

// SetTier replaces the account's tiers with exactly one tier.
func (r *PostgresRepository) SetTier(ctx context.Context, id int64, tier string) error {
	return r.SetTiers(ctx, id, []string{tier})
}

// SetTiers replaces the account's tiers.
func (r *PostgresRepository) SetTiers(ctx context.Context, id int64, tiers []string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `UPDATE accounts SET updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("touching account: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrAccountNotFound
		}
		return replaceTiers(ctx, tx, id, tiers)
	})
}

// CountAll returns the total number of accounts.
func (r *PostgresRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting accounts: %w", err)
	}
	return count, nil
}

func replaceTiers(ctx context.Context, tx pgx.Tx, id int64, tiers []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM account_tiers WHERE account_id = $1`, id); err != nil {
		return fmt.Errorf("clearing account tiers: %w", err)
	}
	for _, t := range tiers {
		_, err := tx.Exec(ctx,
			`INSERT INTO account_tiers (account_id, tier_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, t)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return fmt.Errorf("%w: %s", ErrUnknownTier, t)
			}
			return fmt.Errorf("assigning tier %q: %w", t, err)
		}
	}
	return nil
}
