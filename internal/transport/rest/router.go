package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/auth"
	"github.com/frahmantamala/rbac-api/internal/file"
	"github.com/frahmantamala/rbac-api/internal/notification"
	"github.com/frahmantamala/rbac-api/internal/permission"
	"github.com/frahmantamala/rbac-api/internal/role"
	"github.com/frahmantamala/rbac-api/internal/transport/middleware"
	"github.com/frahmantamala/rbac-api/internal/transport/swagger"
	"github.com/frahmantamala/rbac-api/internal/twofactor"
	"github.com/frahmantamala/rbac-api/internal/user"
)

// Handlers groups everything the router mounts. Nil handlers leave their routes out.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Role         *role.Handler
	Permission   *permission.Handler
	TwoFactor    *twofactor.Handler
	Notification *notification.Handler
	File         *file.Handler
	Health       *HealthHandler
	OpenAPI      *swagger.Document
}

type Options struct {
	AllowedOrigins        []string
	Production            bool
	AuthRequestsPerMinute int
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	rbac := auth.NewRBACAuthorization(logger)

	router.Use(middleware.RequestID)
	router.Use(middleware.Timing)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.SecureHeaders(opts.Production))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	if h.OpenAPI != nil {
		router.Handle(swagger.DocumentPath, h.OpenAPI)
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Use(middleware.RateLimitByIP(opts.AuthRequestsPerMinute, time.Minute))
			sr.Post("/token", h.Auth.Login)
			sr.Post("/password-reset/request", h.Auth.RequestPasswordReset)
			sr.Post("/password-reset/confirm", h.Auth.ConfirmPasswordReset)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Get("/me", h.User.GetCurrentUser)
					ur.Patch("/me", h.User.UpdateCurrentUser)
					ur.Post("/me/change-password", h.User.ChangePassword)
					ur.Post("/me/verify", h.User.VerifyCurrentUser)

					ur.With(rbac.RequirePermissions(user.CodeCreate)).Post("/", h.User.CreateUser)
					ur.With(rbac.RequirePermissions(user.CodeList)).Get("/", h.User.ListUsers)
					ur.With(rbac.RequirePermissions(user.CodeRead)).Get("/{id}", h.User.GetUser)
					ur.With(rbac.RequirePermissions(user.CodeUpdate)).Patch("/{id}", h.User.UpdateUser)
					ur.With(rbac.RequirePermissions(user.CodeDelete)).Delete("/{id}", h.User.DeleteUser)

					ur.Group(func(ar chi.Router) {
						ar.Use(rbac.RequirePermissions(user.CodeUpdate))
						ar.Post("/{id}/roles", h.User.AssignRoles)
						ar.Delete("/{id}/roles/{roleID}", h.User.RemoveRole)
						ar.Post("/{id}/permissions", h.User.GrantPermissions)
						ar.Delete("/{id}/permissions/{permissionID}", h.User.RevokePermission)
					})
				})
			}

			if h.Role != nil {
				pr.Route("/roles", func(rr chi.Router) {
					rr.With(rbac.RequirePermissions(role.CodeCreate)).Post("/", h.Role.CreateRole)
					rr.With(rbac.RequirePermissions(role.CodeList)).Get("/", h.Role.ListRoles)
					rr.With(rbac.RequirePermissions(role.CodeRead)).Get("/{id}", h.Role.GetRole)
					rr.With(rbac.RequirePermissions(role.CodeUpdate)).Patch("/{id}", h.Role.UpdateRole)
					rr.With(rbac.RequirePermissions(role.CodeDelete)).Delete("/{id}", h.Role.DeleteRole)
				})
			}

			if h.Permission != nil {
				pr.Route("/permissions", func(pmr chi.Router) {
					pmr.With(rbac.RequirePermissions(permission.CodeCreate)).Post("/", h.Permission.CreatePermission)
					pmr.With(rbac.RequirePermissions(permission.CodeList)).Get("/", h.Permission.ListPermissions)
					pmr.With(rbac.RequirePermissions(permission.CodeRead)).Get("/{id}", h.Permission.GetPermission)
					pmr.With(rbac.RequirePermissions(permission.CodeUpdate)).Patch("/{id}", h.Permission.UpdatePermission)
					pmr.With(rbac.RequirePermissions(permission.CodeDelete)).Delete("/{id}", h.Permission.DeletePermission)
				})
			}

			if h.TwoFactor != nil {
				pr.Route("/2fa", func(tr chi.Router) {
					tr.Post("/setup", h.TwoFactor.Setup)
					tr.Post("/enable", h.TwoFactor.Enable)
					tr.Post("/disable", h.TwoFactor.Disable)
					tr.Get("/status", h.TwoFactor.Status)
				})
			}

			if h.Notification != nil {
				pr.Route("/notifications", func(nr chi.Router) {
					nr.Get("/", h.Notification.ListNotifications)
					nr.Get("/unread-count", h.Notification.UnreadCount)
					nr.Patch("/{id}/read", h.Notification.MarkRead)
					nr.With(rbac.RequirePermissions(notification.CodeSend)).Post("/send", h.Notification.Send)
				})
				pr.Post("/push/tokens", h.Notification.RegisterPushToken)
				pr.Delete("/push/tokens", h.Notification.UnregisterPushToken)
			}

			if h.File != nil {
				pr.Route("/files", func(fr chi.Router) {
					fr.Get("/", h.File.ListFiles)
					fr.Post("/upload", h.File.UploadFile)
					fr.Get("/{id}", h.File.GetFile)
					fr.Get("/{id}/download", h.File.GetDownloadURL)
					fr.Delete("/{id}", h.File.DeleteFile)
				})
			}
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		status, body := internal.NewNotFoundError("Route not found", internal.ErrCodeRouteNotFound).ToHTTPResponse()
		writeJSON(w, status, body)
	})
}
