package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"s3-explorer/internal/config"
	"s3-explorer/internal/handler"
	"s3-explorer/internal/metrics"
	"s3-explorer/internal/middleware"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	Browser *handler.BrowserHandler
	Bulk    *handler.BulkHandler
	Trash   *handler.TrashHandler
	Admin   *handler.AdminHandler
	Health  *handler.HealthHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(m.Middleware)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		// Uploads and archive downloads run for as long as bytes keep moving.
		api.Group(func(stream chi.Router) {
			stream.Use(authMiddleware.RequireAuth)
			stream.Use(middleware.StreamingTimeout(cfg.TransferTimeout, cfg.TransferIdleTimeout))

			stream.Post("/files/upload", h.Browser.Upload)
			stream.Post("/bulk/download", h.Bulk.Download)
		})

		api.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(cfg.RequestTimeout))

			api.Route("/auth", func(auth chi.Router) {
				auth.Post("/login", h.Auth.Login)
				auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
			})

			api.Group(func(user chi.Router) {
				user.Use(authMiddleware.RequireAuth)

				user.Get("/objects", h.Browser.List)
				user.Post("/objects/move", h.Browser.Move)
				user.Post("/folders", h.Browser.CreateFolder)
				user.Delete("/folders", h.Browser.DeleteFolder)
				user.Get("/folders/suggest", h.Browser.SuggestFolders)
				user.Get("/files/link", h.Browser.DownloadLink)
				user.Delete("/files", h.Browser.DeleteFile)
				user.Get("/search", h.Browser.Search)

				user.Post("/bulk/delete", h.Bulk.Delete)
				user.Post("/bulk/move", h.Bulk.Move)
			})

			api.Route("/trash", func(trash chi.Router) {
				trash.Use(authMiddleware.RequireAuth, authMiddleware.RequireSuperuser)

				trash.Get("/", h.Trash.List)
				trash.Delete("/", h.Trash.Empty)
				trash.Post("/purge-expired", h.Trash.PurgeExpired)
				trash.Post("/{id}/restore", h.Trash.Restore)
				trash.Delete("/{id}", h.Trash.Purge)
			})

			api.Route("/admin", func(admin chi.Router) {
				admin.Use(authMiddleware.RequireAuth, authMiddleware.RequireSuperuser)

				admin.Get("/audit", h.Admin.ListAudit)
				admin.Delete("/audit", h.Admin.PruneAudit)
				admin.Get("/users", h.Admin.ListUsers)
				admin.Post("/users", h.Admin.CreateUser)
				admin.Get("/users/{id}/grants", h.Admin.ListGrants)
				admin.Put("/users/{id}/grants", h.Admin.UpsertGrant)
				admin.Delete("/users/{id}/grants", h.Admin.DeleteGrant)
				admin.Get("/stats", h.Admin.Stats)
			})
		})
	})

	return r
}
