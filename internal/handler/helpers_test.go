// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/petrpacas/spiritevents-sub000/internal/auth"
	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/mail"
	"github.com/petrpacas/spiritevents-sub000/internal/middleware"
	"github.com/petrpacas/spiritevents-sub000/internal/notify"
	"github.com/petrpacas/spiritevents-sub000/internal/render"
	"github.com/petrpacas/spiritevents-sub000/internal/seo"
	"github.com/petrpacas/spiritevents-sub000/internal/service"
	"github.com/petrpacas/spiritevents-sub000/internal/session"
	"github.com/petrpacas/spiritevents-sub000/internal/storage"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
	"github.com/petrpacas/spiritevents-sub000/internal/testutil"
	"github.com/petrpacas/spiritevents-sub000/internal/version"
	"github.com/petrpacas/spiritevents-sub000/web"
)

const (
	testAdminEmail    = "admin@example.org"
	testAdminPassword = "correct horse battery staple"
)

// testApp wires the handlers against an in-memory database and the real
// templates.
type testApp struct {
	db         *sql.DB
	sm         *scs.SessionManager
	renderer   *render.Renderer
	storage    *storage.Local
	mailer     *mail.Recorder
	notifier   *notify.Recorder
	events     *service.EventService
	categories *service.CategoryService
	newsletter *service.NewsletterService
	feedback   *service.FeedbackService
	operator   auth.Principal
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.TestMemoryDB(t)
	logger := testutil.TestLogger()
	sm := session.New(db, true)

	if err := store.SeedAdmin(context.Background(), db, testAdminEmail, testAdminPassword); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	user, err := store.New(db).GetUserByEmail(context.Background(), testAdminEmail)
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}

	local, err := storage.NewLocal(t.TempDir(), RouteUploads)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    web.Templates(),
		SessionManager: sm,
		ImageURL:       local.URL,
		SiteName:       "Spirit Events",
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	app := &testApp{
		db:       db,
		sm:       sm,
		renderer: renderer,
		storage:  local,
		mailer:   &mail.Recorder{},
		notifier: &notify.Recorder{},
		operator: auth.Operator(user.ID, user.Email, user.Name),
	}
	app.events = service.NewEventService(db, service.EventServiceOptions{
		Storage:  local,
		Notifier: app.notifier,
		Logger:   logger,
		BaseURL:  "https://spirit.example.org",
	})
	app.categories = service.NewCategoryService(db, nil, logger)
	app.newsletter = service.NewNewsletterService(db, app.mailer, app.notifier, "Spirit Events", logger)
	app.feedback = service.NewFeedbackService(db, app.mailer, app.notifier, "", logger)
	return app
}

var testSite = seo.SiteConfig{
	SiteName:    "Spirit Events",
	SiteURL:     "https://spirit.example.org",
	Description: "Upcoming gatherings.",
}

func (a *testApp) router() http.Handler {
	return NewRouter(RouterConfig{
		DB:            a.db,
		Renderer:      a.renderer,
		Sessions:      a.sm,
		Events:        a.events,
		Categories:    a.categories,
		Newsletter:    a.newsletter,
		Feedback:      a.feedback,
		Storage:       a.storage,
		StaticFS:      web.Static(),
		CSRFKey:       []byte("0123456789abcdef0123456789abcdef"),
		IsDev:         true,
		FormRateLimit: 100,
		FormRateBurst: 100,
		Version:       version.Info{Version: "v1.0.0"},
		Site:          testSite,
	})
}

func (a *testApp) public() *PublicHandler {
	h := NewPublicHandler(a.renderer, a.events, a.categories, a.newsletter, a.feedback)
	h.site = testSite
	return h
}

func (a *testApp) admin() *AdminHandler {
	return NewAdminHandler(a.renderer, a.events, a.categories, a.newsletter, a.feedback)
}

// createEvent stores an event through the service, failing the test on
// error.
func (a *testApp) createEvent(t *testing.T, in event.Input) store.Event {
	t.Helper()
	res, err := a.events.Create(context.Background(), a.operator, service.EventForm{Input: in})
	if err != nil {
		t.Fatalf("Create(%q): %v", in.Title, err)
	}
	return res.Event
}

func (a *testApp) publishEvent(t *testing.T, in event.Input) store.Event {
	t.Helper()
	e := a.createEvent(t, in)
	res, err := a.events.Publish(context.Background(), a.operator, e.ID)
	if err != nil {
		t.Fatalf("Publish(%q): %v", in.Title, err)
	}
	return res.Event
}

// serve runs h with a loaded session, the principal p and chi URL params.
func (a *testApp) serve(h http.HandlerFunc, req *http.Request, p auth.Principal, params map[string]string) *httptest.ResponseRecorder {
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	req = req.WithContext(middleware.WithPrincipal(req.Context(), p))

	rec := httptest.NewRecorder()
	a.sm.LoadAndSave(h).ServeHTTP(rec, req)
	return rec
}

// login signs the seeded operator in through the router and returns the
// session cookie.
func (a *testApp) login(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	req := postForm("/login", url.Values{"email": {testAdminEmail}, "password": {testAdminPassword}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
