// Package providers tracks the active storage-provider set the reconciler
// schedules against: a Postgres-backed store of record plus an optional
// Redis read-through cache.
package providers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/data/pgxutil"
)

// Store is the Postgres-backed provider catalog on active_providers.
type Store struct {
	DB           *sql.DB
	timeProvider data.TimeProvider
}

var _ core.ProviderLister = (*Store)(nil)

// NewStore creates a Store backed by the given pool.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, timeProvider: &data.RealTimeProvider{}}
}

// NewStoreWithTimeProvider creates a Store with a custom clock.
func NewStoreWithTimeProvider(db *sql.DB, tp data.TimeProvider) *Store {
	return &Store{DB: db, timeProvider: tp}
}

// ListActiveProviders returns all known active provider addresses, sorted.
func (s *Store) ListActiveProviders(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT sp_address FROM active_providers ORDER BY sp_address ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active providers: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var addrs []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan provider address: %w", err)
		}
		addrs = append(addrs, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider addresses: %w", err)
	}
	return addrs, nil
}

// ReplaceAll swaps the catalog contents for the given set in one transaction.
// An empty set is a no-op: the caller cannot distinguish "no providers" from
// "source unavailable", so the previous catalog stands.
func (s *Store) ReplaceAll(ctx context.Context, addrs []string) error {
	if len(addrs) == 0 {
		return nil
	}

	now := s.timeProvider.Now().UTC()
	err := pgxutil.WithPgxTx(ctx, s.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `DELETE FROM active_providers WHERE sp_address <> ALL($1::text[])`, addrs); err != nil {
				return fmt.Errorf("remove departed providers: %w", err)
			}
			for _, addr := range addrs {
				if _, err := tx.Exec(ctx, `
					INSERT INTO active_providers (sp_address, updated_at)
					VALUES ($1, $2)
					ON CONFLICT (sp_address) DO UPDATE SET updated_at = EXCLUDED.updated_at
				`, addr, now); err != nil {
					return fmt.Errorf("upsert provider %s: %w", addr, err)
				}
			}
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("replace active providers: %w", err)
	}
	return nil
}

// Add inserts or refreshes one provider address.
func (s *Store) Add(ctx context.Context, addr string) error {
	if addr == "" {
		return fmt.Errorf("provider address is required")
	}
	if _, err := s.DB.ExecContext(ctx, `
		INSERT INTO active_providers (sp_address, updated_at)
		VALUES ($1, $2)
		ON CONFLICT (sp_address) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`, addr, s.timeProvider.Now().UTC()); err != nil {
		return fmt.Errorf("add provider %s: %w", addr, err)
	}
	return nil
}

// Remove deletes one provider address from the catalog.
func (s *Store) Remove(ctx context.Context, addr string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM active_providers WHERE sp_address = $1`, addr)
	if err != nil {
		return false, fmt.Errorf("remove provider %s: %w", addr, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove provider %s: rows affected: %w", addr, err)
	}
	return affected > 0, nil
}
