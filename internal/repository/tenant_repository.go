package repository

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/rpattn/payrolldesk/internal/db"
	"github.com/rpattn/payrolldesk/internal/domain"
)

const tenantColumns = `id, name, subdomain, is_active, created_at, updated_at`

// tenantRepository implements TenantRepository interface
type tenantRepository struct {
	pool db.Querier
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(pool db.Querier) TenantRepository {
	return &tenantRepository{pool: pool}
}

// Create creates a new tenant
func (r *tenantRepository) Create(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	if r.pool == nil {
		return domain.Tenant{}, ErrNotInitialized
	}

	row := db.QuerierFromContext(ctx, r.pool).QueryRow(
		ctx,
		`INSERT INTO tenants (name, subdomain, is_active)
		 VALUES ($1, $2, $3)
		 RETURNING `+tenantColumns,
		tenant.Name,
		tenant.Subdomain,
		tenant.IsActive,
	)

	created, err := scanTenant(row)
	if err != nil {
		return domain.Tenant{}, gerrors.Wrap(err, "failed to create tenant")
	}
	return created, nil
}

// GetByID retrieves a tenant by ID
func (r *tenantRepository) GetByID(ctx context.Context, id int64) (domain.Tenant, error) {
	if r.pool == nil {
		return domain.Tenant{}, ErrNotInitialized
	}

	row := db.QuerierFromContext(ctx, r.pool).QueryRow(
		ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`,
		id,
	)
	tenant, err := scanTenant(row)
	if err != nil {
		return domain.Tenant{}, gerrors.Wrapf(err, "failed to get tenant %d", id)
	}
	return tenant, nil
}

// GetBySubdomain retrieves a tenant by its subdomain
func (r *tenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (domain.Tenant, error) {
	if r.pool == nil {
		return domain.Tenant{}, ErrNotInitialized
	}

	row := db.QuerierFromContext(ctx, r.pool).QueryRow(
		ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1`,
		subdomain,
	)
	tenant, err := scanTenant(row)
	if err != nil {
		return domain.Tenant{}, gerrors.Wrapf(err, "failed to get tenant by subdomain %q", subdomain)
	}
	return tenant, nil
}

// List retrieves all tenants
func (r *tenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	if r.pool == nil {
		return nil, ErrNotInitialized
	}

	rows, err := db.QuerierFromContext(ctx, r.pool).Query(
		ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY id`,
	)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list tenants")
	}
	defer rows.Close()

	tenants := []domain.Tenant{}
	for rows.Next() {
		tenant, scanErr := scanTenant(rows)
		if scanErr != nil {
			return nil, gerrors.Wrap(scanErr, "failed to scan tenant")
		}
		tenants = append(tenants, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "failed to iterate tenants")
	}
	return tenants, nil
}

// SetActive activates or deactivates a tenant. Tenants are never deleted.
func (r *tenantRepository) SetActive(ctx context.Context, id int64, active bool) error {
	if r.pool == nil {
		return ErrNotInitialized
	}

	tag, err := db.QuerierFromContext(ctx, r.pool).Exec(
		ctx,
		`UPDATE tenants SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id,
		active,
	)
	if err != nil {
		return gerrors.Wrap(err, "failed to update tenant")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTenant(row pgx.Row) (domain.Tenant, error) {
	var tenant domain.Tenant
	err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Subdomain,
		&tenant.IsActive,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Tenant{}, ErrNotFound
	}
	return tenant, err
}
