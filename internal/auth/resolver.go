package auth

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/logging"
)

// NoTenantMessage is the user-facing text for ErrNoTenant.
const NoTenantMessage = "No tenant found. Please ensure you're signed up and have a valid workspace."

// ErrNoTenant is reported to callers when no workspace can be resolved.
var ErrNoTenant = errors.New("no tenant found")

// TenantLookup fetches a tenant by id.
type TenantLookup interface {
	GetByID(ctx context.Context, id int64) (domain.Tenant, error)
}

// Resolver determines which tenant a request operates on.
type Resolver struct {
	tenants TenantLookup
}

// NewResolver constructs a Resolver.
func NewResolver(tenants TenantLookup) *Resolver {
	return &Resolver{tenants: tenants}
}

// ResolveTenant returns an active tenant already attached to ctx, or the
// active tenant assigned to the principal in ctx. Principals without an
// assignment resolve to nothing; no other tenant is ever substituted.
func (r *Resolver) ResolveTenant(ctx context.Context) (domain.Tenant, bool) {
	if tenant, ok := TenantFromContext(ctx); ok && tenant.IsActive {
		return tenant, true
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok || !principal.IsActive || !principal.HasTenant() {
		return domain.Tenant{}, false
	}

	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"user_id":   principal.ID,
		"tenant_id": *principal.TenantID,
	})

	if r.tenants == nil {
		log.Error("tenant lookup not configured")
		return domain.Tenant{}, false
	}

	tenant, err := r.tenants.GetByID(ctx, *principal.TenantID)
	if err != nil {
		log.WithError(err).Warn("assigned tenant could not be loaded")
		return domain.Tenant{}, false
	}
	if !tenant.IsActive {
		log.Warn("assigned tenant is inactive")
		return domain.Tenant{}, false
	}
	return tenant, true
}
