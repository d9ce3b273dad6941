package tier

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

const allColumns = `id, name, position, created_at`

func scanTier(row pgx.Row) (*Tier, error) {
	var t Tier
	if err := row.Scan(&t.ID, &t.Name, &t.Position, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTierNotFound
		}
		return nil, fmt.Errorf("scanning tier row: %w", err)
	}
	return &t, nil
}

// Create inserts a new tier. A zero Position appends it after the last tier.
func (r *PostgresRepository) Create(ctx context.Context, t *Tier) error {
	query := `
		INSERT INTO tiers (id, name, position)
		VALUES ($1, $2, CASE WHEN $3 > 0 THEN $3 ELSE (SELECT COALESCE(MAX(position), 0) + 1 FROM tiers) END)
		RETURNING ` + allColumns

	created, err := scanTier(r.pool.QueryRow(ctx, query, t.ID, t.Name, t.Position))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTier
		}
		return fmt.Errorf("inserting tier: %w", err)
	}

	*t = *created
	return nil
}

// GetByID retrieves a single tier by its id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Tier, error) {
	query := `SELECT ` + allColumns + ` FROM tiers WHERE id = $1`
	return scanTier(r.pool.QueryRow(ctx, query, id))
}

// List retrieves all tiers in registry order.
func (r *PostgresRepository) List(ctx context.Context) ([]Tier, error) {
	query := `SELECT ` + allColumns + ` FROM tiers ORDER BY position ASC, id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tiers: %w", err)
	}
	defer rows.Close()

	var tiers []Tier
	for rows.Next() {
		var t Tier
		if err := rows.Scan(&t.ID, &t.Name, &t.Position, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tier row: %w", err)
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tier rows: %w", err)
	}

	if tiers == nil {
		tiers = []Tier{}
	}

	return tiers, nil
}

// Delete removes a tier. Returns ErrTierInUse if any account still holds it.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM account_tiers WHERE tier_id = $1`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking accounts holding tier: %w", err)
	}
	if count > 0 {
		return ErrTierInUse
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM tiers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting tier: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTierNotFound
	}

	return nil
}
