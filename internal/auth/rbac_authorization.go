package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/transport"
)

// RBACAuthorization builds route guards that run after AuthMiddleware.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

// RequirePermissions passes only users holding every listed permission code.
func (ra *RBACAuthorization) RequirePermissions(codes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				ra.HandleServiceError(w, internal.ErrNotAuthenticated)
				return
			}

			if missing := user.MissingPermissions(codes...); len(missing) > 0 {
				ra.Logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"required_permissions", codes,
					"missing_permissions", missing)
				ra.HandleServiceError(w, internal.ErrNotEnoughPermissions)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles passes users holding at least one of the listed roles.
func (ra *RBACAuthorization) RequireRoles(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				ra.HandleServiceError(w, internal.ErrNotAuthenticated)
				return
			}

			if !user.HasAnyRole(names...) {
				ra.Logger.WarnContext(r.Context(), "access denied: role required",
					"user_id", user.ID,
					"required_roles", names,
					"user_roles", user.Roles)
				ra.HandleServiceError(w, internal.ErrRoleRequired)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
