package repository

import (
	"context"
	"errors"
	"strings"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rpattn/payrolldesk/internal/db"
	"github.com/rpattn/payrolldesk/internal/domain"
)

const userColumns = `id, email, tenant_id, is_active, is_admin`

type userRepository struct {
	pool db.Querier
}

// NewUserRepository wires a repository backed by pgx.
func NewUserRepository(pool db.Querier) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.Principal, error) {
	if r.pool == nil {
		return domain.Principal{}, ErrNotInitialized
	}

	row := db.QuerierFromContext(ctx, r.pool).QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email),
	)
	principal, err := scanPrincipal(row)
	if err != nil {
		return domain.Principal{}, gerrors.Wrap(err, "failed to get user by email")
	}
	return principal, nil
}

// Upsert creates the user or reassigns an existing one by email.
func (r *userRepository) Upsert(ctx context.Context, principal domain.Principal) (domain.Principal, error) {
	if r.pool == nil {
		return domain.Principal{}, ErrNotInitialized
	}

	tenantID := pgtype.Int8{}
	if principal.TenantID != nil {
		tenantID = pgtype.Int8{Int64: *principal.TenantID, Valid: true}
	}

	row := db.QuerierFromContext(ctx, r.pool).QueryRow(
		ctx,
		`INSERT INTO users (email, tenant_id, is_active, is_admin)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE
		   SET tenant_id = EXCLUDED.tenant_id,
		       is_active = EXCLUDED.is_active,
		       is_admin = EXCLUDED.is_admin,
		       updated_at = NOW()
		 RETURNING `+userColumns,
		strings.ToLower(strings.TrimSpace(principal.Email)),
		tenantID,
		principal.IsActive,
		principal.IsAdmin,
	)
	saved, err := scanPrincipal(row)
	if err != nil {
		return domain.Principal{}, gerrors.Wrap(err, "failed to upsert user")
	}
	return saved, nil
}

func scanPrincipal(row pgx.Row) (domain.Principal, error) {
	var (
		principal domain.Principal
		tenantID  pgtype.Int8
	)
	err := row.Scan(&principal.ID, &principal.Email, &tenantID, &principal.IsActive, &principal.IsAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Principal{}, ErrNotFound
	}
	if err != nil {
		return domain.Principal{}, err
	}
	if tenantID.Valid {
		value := tenantID.Int64
		principal.TenantID = &value
	}
	return principal, nil
}
