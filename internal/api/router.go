package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/auth"
	"github.com/erazemk/auditit/internal/imaging"
	"github.com/erazemk/auditit/internal/lifecycle"
	"github.com/erazemk/auditit/internal/metrics"
	"github.com/erazemk/auditit/internal/model"
	"github.com/erazemk/auditit/internal/photos"
	"github.com/erazemk/auditit/internal/sso"
)

// IdentityProvider resolves DingTalk login codes to identities.
type IdentityProvider interface {
	UserByAuthCode(ctx context.Context, code string) (*sso.Identity, error)
	UserBySSOCode(ctx context.Context, code string) (*sso.Identity, error)
}

// Deps are the collaborators of the HTTP API. SSO, Photos, PhotoFiles and
// Metrics are optional.
type Deps struct {
	DB     *sqlx.DB
	Engine *lifecycle.Engine
	Signer *auth.Signer
	SSO    IdentityProvider
	Photos photos.Store
	// PhotoFiles serves stored photos under PhotoPrefix (filesystem backend).
	PhotoFiles  http.Handler
	PhotoPrefix string
	Images      imaging.Processor
	Logger      *zap.Logger
	Metrics     *metrics.Metrics

	AllowedOrigins []string
	// RateLimit is the number of requests per minute per client IP; zero disables it.
	RateLimit int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	authHandler := &AuthHandler{DB: d.DB, Signer: d.Signer, SSO: d.SSO, Log: log}
	warehousesHandler := &WarehousesHandler{DB: d.DB, Log: log}
	categoriesHandler := &CategoriesHandler{DB: d.DB, Log: log}
	definitionsHandler := &DefinitionsHandler{DB: d.DB, Log: log}
	remarksHandler := &QuickRemarksHandler{DB: d.DB, Log: log}
	itemsHandler := &ItemsHandler{DB: d.DB, Engine: d.Engine, Photos: d.Photos, Images: d.Images, Log: log}
	auditHandler := &AuditLogsHandler{DB: d.DB, Log: log}
	usersHandler := &UsersHandler{DB: d.DB, Log: log}

	requireAdmin := RequireRole(model.RoleAdmin)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log, d.Metrics))
	r.Use(middleware.Recoverer)

	allowed := d.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}))

	if d.RateLimit > 0 {
		r.Use(httprate.LimitByIP(d.RateLimit, time.Minute))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	if d.PhotoFiles != nil && d.PhotoPrefix != "" {
		prefix := strings.TrimSuffix(d.PhotoPrefix, "/")
		r.Method(http.MethodGet, prefix+"/*", d.PhotoFiles)
	}

	r.Route("/api", func(r chi.Router) {
		// Public: login.
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/dingtalk-login", authHandler.DingTalkLogin)
		r.Post("/auth/dingtalk-sso-login", authHandler.DingTalkSSOLogin)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.Signer, d.DB, log))

			r.Post("/auth/logout", authHandler.Logout)
			r.Put("/auth/password", authHandler.ChangePassword)

			// Master data: read and write (all roles), delete (admin).
			r.Route("/warehouses", func(r chi.Router) {
				r.Get("/", warehousesHandler.List)
				r.Post("/", warehousesHandler.Create)
				r.Get("/{id}", warehousesHandler.Get)
				r.Put("/{id}", warehousesHandler.Update)
				r.With(requireAdmin).Delete("/{id}", warehousesHandler.Delete)
			})
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", categoriesHandler.List)
				r.Post("/", categoriesHandler.Create)
				r.Get("/{id}", categoriesHandler.Get)
				r.Put("/{id}", categoriesHandler.Update)
				r.With(requireAdmin).Delete("/{id}", categoriesHandler.Delete)
			})
			r.Route("/item-definitions", func(r chi.Router) {
				r.Get("/", definitionsHandler.List)
				r.Post("/", definitionsHandler.Create)
				r.Get("/{id}", definitionsHandler.Get)
				r.Put("/{id}", definitionsHandler.Update)
				r.With(requireAdmin).Delete("/{id}", definitionsHandler.Delete)
			})
			r.Route("/quick-remarks", func(r chi.Router) {
				r.Get("/", remarksHandler.List)
				r.Post("/", remarksHandler.Create)
				r.Delete("/{id}", remarksHandler.Delete)
			})

			// Items and their lifecycle.
			r.Route("/items", func(r chi.Router) {
				r.Get("/", itemsHandler.List)
				r.Post("/batch", itemsHandler.GetBatch)
				r.Post("/create", itemsHandler.Create)
				r.Post("/create/batch", itemsHandler.CreateBatch)
				r.Post("/update-status/batch", itemsHandler.UpdateStatusBatch)
				r.Get("/{id}", itemsHandler.Get)
				r.Put("/{id}", itemsHandler.Update)
				r.Put("/{id}/outbound", itemsHandler.Outbound)
				r.Put("/{id}/check", itemsHandler.Check)
				r.Put("/{id}/return", itemsHandler.Return)
				r.Put("/{id}/dispose", itemsHandler.Dispose)
				r.Put("/{id}/transfer", itemsHandler.Transfer)
			})

			r.Get("/audit-logs", auditHandler.List)

			// Users (admin only).
			r.Route("/users", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", usersHandler.List)
				r.Put("/{id}", usersHandler.UpdateRole)
			})
		})
	})

	return r
}
