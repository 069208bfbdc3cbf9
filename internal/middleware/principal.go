package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rpattn/payrolldesk/internal/auth"
	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/logging"
	"github.com/rpattn/payrolldesk/internal/repository"
)

// UserHeader names the header an upstream authenticating proxy sets to the
// signed-in user's email.
const UserHeader = "X-Authenticated-User"

// UserLookup loads principals by email.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (domain.Principal, error)
}

// Authenticate attaches the principal named by UserHeader. Unknown users and
// missing headers pass through without a principal.
func Authenticate(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := strings.ToLower(strings.TrimSpace(r.Header.Get(UserHeader)))
			if email == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			principal, err := users.GetByEmail(ctx, email)
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					logging.FromContext(ctx).WithError(err).Error("failed to load principal")
					writeError(w, http.StatusInternalServerError, "failed to load user")
					return
				}
				logging.FromContext(ctx).WithField("email", email).Debug("unknown user")
				next.ServeHTTP(w, r)
				return
			}

			ctx = auth.ContextWithPrincipal(ctx, principal)
			ctx = logging.WithEntry(ctx, logging.FromContext(ctx).WithField("user_id", principal.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
