package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rpattn/payrolldesk/internal/auth"
	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/logging"
)

// TenantResolver resolves the tenant a request operates on.
type TenantResolver interface {
	ResolveTenant(ctx context.Context) (domain.Tenant, bool)
}

var _ TenantResolver = (*auth.Resolver)(nil)

// RequireTenant rejects requests that resolve to no active tenant and
// attaches the tenant to the context of those that do.
func RequireTenant(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tenant, ok := resolver.ResolveTenant(ctx)
			if !ok {
				logging.FromContext(ctx).WithError(auth.ErrNoTenant).Info("request rejected")
				writeError(w, http.StatusBadRequest, auth.NoTenantMessage)
				return
			}

			ctx = auth.ContextWithTenant(ctx, tenant)
			ctx = logging.WithEntry(ctx, logging.FromContext(ctx).WithField("tenant_id", tenant.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
