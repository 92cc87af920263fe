package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"alert-digest/internal/directory"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const defaultTable = "suscripciones"

// SubscriptionStore reads the subscription directory.
type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context) ([]directory.Subscription, error)
}

// Store reads subscriptions from a PostgreSQL table with the columns
// id_suscripcion, nombre_suscripcion and cliente.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool, table string) *Store {
	if table == "" {
		table = defaultTable
	}
	return &Store{pool: pool, table: table}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

func listSubscriptionsSQL(table string) string {
	return fmt.Sprintf(`SELECT
        id_suscripcion,
        nombre_suscripcion,
        cliente
    FROM %s
    ORDER BY id_suscripcion;`, pgx.Identifier{table}.Sanitize())
}

// ListSubscriptions returns every row of the subscription table.
func (s *Store) ListSubscriptions(ctx context.Context) ([]directory.Subscription, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSubscriptionsSQL(s.table))
	if queryErr != nil {
		return nil, fmt.Errorf("list subscriptions: %w", queryErr)
	}

	subs, err := pgx.CollectRows(rows, scanSubscription)
	if err != nil {
		return nil, fmt.Errorf("scan subscriptions: %w", err)
	}
	return subs, nil
}

func scanSubscription(row pgx.CollectableRow) (directory.Subscription, error) {
	var sub directory.Subscription
	if err := row.Scan(&sub.ID, &sub.Name, &sub.Client); err != nil {
		return directory.Subscription{}, err
	}
	return sub, nil
}

// LoadDirectory builds a directory from the store contents.
func LoadDirectory(ctx context.Context, store SubscriptionStore) (*directory.Directory, error) {
	subs, err := store.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return directory.New(subs), nil
}

var _ SubscriptionStore = (*Store)(nil)
