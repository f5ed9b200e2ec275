package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxQuerier is the slice of pgxpool.Pool the store needs; pgxmock
// satisfies it in tests.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgStore struct {
	pool PgxQuerier
}

func NewPgStore(pool PgxQuerier) *PgStore {
	return &PgStore{pool: pool}
}

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.TablePrefix,
		&t.Address,
		&t.Phone,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, slug, table_prefix, address, phone, active, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`, id)
	return scanTenant(row)
}

func (s *PgStore) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, slug, table_prefix, address, phone, active, created_at, updated_at
		FROM tenants
		WHERE slug = $1
	`, slug)
	return scanTenant(row)
}

// Insert registers a new tenant. Partition tables are created
// separately by the Provisioner.
func (s *PgStore) Insert(ctx context.Context, t *Tenant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenants (id, name, slug, table_prefix, address, phone, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`, t.ID, t.Name, t.Slug, t.TablePrefix, t.Address, t.Phone, t.Active)
	return err
}
