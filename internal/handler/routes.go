// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"io/fs"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/petrpacas/spiritevents-sub000/internal/geoip"
	"github.com/petrpacas/spiritevents-sub000/internal/middleware"
	"github.com/petrpacas/spiritevents-sub000/internal/render"
	"github.com/petrpacas/spiritevents-sub000/internal/seo"
	"github.com/petrpacas/spiritevents-sub000/internal/service"
	"github.com/petrpacas/spiritevents-sub000/internal/storage"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
	"github.com/petrpacas/spiritevents-sub000/internal/version"
)

// RouterConfig holds everything the HTTP router serves.
type RouterConfig struct {
	DB         *sql.DB
	Renderer   *render.Renderer
	Sessions   *scs.SessionManager
	Events     *service.EventService
	Categories *service.CategoryService
	Newsletter *service.NewsletterService
	Feedback   *service.FeedbackService

	// Storage is probed by the health check; nil skips the probe.
	Storage storage.Storage
	// UploadsDir is served under /uploads when images are stored locally.
	UploadsDir string
	// StaticFS holds the compiled assets served under /static.
	StaticFS fs.FS
	// Geo prefills visitor countries; nil disables lookups.
	Geo *geoip.Locator
	// Site names the public site in meta tags and the sitemap.
	Site seo.SiteConfig
	// BlockCrawlers disallows all crawling in robots.txt.
	BlockCrawlers bool

	CSRFKey       []byte
	IsDev         bool
	FormRateLimit float64
	FormRateBurst int
	Version       version.Info
	// RequestLogging enables the chi request logger.
	RequestLogging bool
}

// crudHandlers defines the standard CRUD handler methods.
type crudHandlers struct {
	List     http.HandlerFunc
	NewForm  http.HandlerFunc
	Create   http.HandlerFunc
	EditForm http.HandlerFunc
	Update   http.HandlerFunc
	Delete   http.HandlerFunc
}

// registerCRUD registers standard CRUD routes for a resource.
// Routes: GET /, GET /new, POST /, GET /{id}/edit, PUT /{id}, POST /{id},
// DELETE /{id}, POST /{id}/delete
func registerCRUD(r chi.Router, base, baseID string, h crudHandlers) {
	r.Get(base, h.List)
	r.Get(base+RouteSuffixNew, h.NewForm)
	r.Post(base, h.Create)
	r.Get(baseID+RouteSuffixEdit, h.EditForm)
	r.Put(baseID, h.Update)
	r.Post(baseID, h.Update) // HTML forms can't send PUT
	r.Delete(baseID, h.Delete)
	r.Post(baseID+RouteSuffixDelete, h.Delete)
}

// NewRouter builds the application router.
func NewRouter(cfg RouterConfig) http.Handler {
	public := NewPublicHandler(cfg.Renderer, cfg.Events, cfg.Categories, cfg.Newsletter, cfg.Feedback)
	public.geo = cfg.Geo
	public.site = cfg.Site
	public.blockCrawlers = cfg.BlockCrawlers
	admin := NewAdminHandler(cfg.Renderer, cfg.Events, cfg.Categories, cfg.Newsletter, cfg.Feedback)
	authHandler := NewAuthHandler(cfg.DB, cfg.Renderer, cfg.Sessions)
	health := NewHealthHandler(cfg.DB, cfg.Storage, cfg.Version)
	errorPages := pages{renderer: cfg.Renderer}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.RequestLogging {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDev)))
	r.Use(cfg.Sessions.LoadAndSave)
	r.Use(middleware.LoadPrincipal(cfg.Sessions, store.New(cfg.DB)))

	r.NotFound(errorPages.notFound)

	if cfg.StaticFS != nil {
		r.Handle(RouteStatic+"/*", http.StripPrefix(RouteStatic+"/", http.FileServer(http.FS(cfg.StaticFS))))
	}
	if cfg.UploadsDir != "" {
		r.Handle(RouteUploads+"/*", http.StripPrefix(RouteUploads+"/", http.FileServer(http.Dir(cfg.UploadsDir))))
	}

	r.Get(RouteHealth, health.Health)
	r.Get(RouteSitemap, public.Sitemap)
	r.Get(RouteRobots, public.Robots)

	csrf := middleware.CSRF(middleware.DefaultCSRFConfig(cfg.CSRFKey, cfg.IsDev))
	formLimiter := middleware.NewFormRateLimiter(cfg.FormRateLimit, cfg.FormRateBurst)

	// Public site
	r.Group(func(r chi.Router) {
		r.Use(csrf)
		r.Get(RouteRoot, public.Home)
		r.Get(RouteEventSearch, public.Search)
		r.Get(RouteEventSlug, public.Event)
		r.Get(RouteCategorySlug, public.Category)
		r.Get(RouteSuggest, public.SuggestForm)
		r.Get(RouteFeedback, public.FeedbackForm)

		r.Group(func(r chi.Router) {
			r.Use(formLimiter.Middleware)
			r.Post(RouteSuggest, public.Suggest)
			r.Post(RouteNewsletter, public.Newsletter)
			r.Post(RouteFeedback, public.Feedback)
			r.Post(RouteLogin, authHandler.Login)
		})

		r.Get(RouteLogin, authHandler.LoginForm)
		r.Post(RouteLogout, authHandler.Logout)
	})

	// Operator admin
	r.Route(RouteAdmin, func(r chi.Router) {
		r.Use(csrf)
		r.Use(middleware.RequireOperator)

		r.Get(RouteRoot, admin.Dashboard)

		registerCRUD(r, RouteEvents, RouteEventsID, crudHandlers{
			List: admin.Events, NewForm: admin.NewEvent, Create: admin.CreateEvent,
			EditForm: admin.EditEvent, Update: admin.UpdateEvent, Delete: admin.DeleteEvent,
		})
		r.Post(RouteEventsIDPublish, admin.PublishEvent)
		r.Post(RouteEventsIDDraft, admin.DraftEvent)

		registerCRUD(r, RouteCategories, RouteCategoriesID, crudHandlers{
			List: admin.Categories, NewForm: admin.NewCategory, Create: admin.CreateCategory,
			EditForm: admin.EditCategory, Update: admin.UpdateCategory, Delete: admin.DeleteCategory,
		})

		r.Post(RouteSlug, admin.Slug)
		r.Get(RouteSubscribers, admin.Subscribers)
		r.Get(RouteFeedbackInbox, admin.FeedbackInbox)
	})

	return r
}
