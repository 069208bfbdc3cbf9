package auth

import (
	"context"
	"fmt"

	"github.com/rpattn/payrolldesk/internal/domain"
)

type contextKey string

const (
	tenantKey    contextKey = "tenant"
	principalKey contextKey = "principal"
)

// ContextWithTenant returns a new context that carries the resolved tenant.
func ContextWithTenant(ctx context.Context, tenant domain.Tenant) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tenantKey, tenant)
}

// TenantFromContext retrieves the resolved tenant from the context, if any.
func TenantFromContext(ctx context.Context) (domain.Tenant, bool) {
	if ctx == nil {
		return domain.Tenant{}, false
	}
	tenant, ok := ctx.Value(tenantKey).(domain.Tenant)
	if !ok || tenant.ID == 0 {
		return domain.Tenant{}, false
	}
	return tenant, true
}

// ContextWithPrincipal returns a new context that carries the authenticated user.
func ContextWithPrincipal(ctx context.Context, principal domain.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromContext retrieves the authenticated user from the context, if any.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	if ctx == nil {
		return domain.Principal{}, false
	}
	principal, ok := ctx.Value(principalKey).(domain.Principal)
	if !ok {
		return domain.Principal{}, false
	}
	return principal, true
}

// EnforceTenantScope ensures the provided tenant matches the resolved scope when present.
func EnforceTenantScope(ctx context.Context, tenantID int64) error {
	if tenantID <= 0 {
		return fmt.Errorf("tenant id is required")
	}
	scoped, ok := TenantFromContext(ctx)
	if !ok {
		return nil
	}
	if scoped.ID != tenantID {
		return fmt.Errorf("tenant %d does not match authenticated scope", tenantID)
	}
	return nil
}
