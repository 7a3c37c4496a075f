// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/petrpacas/spiritevents-sub000/internal/auth"
	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/service"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

func TestRouter_AdminRequiresLogin(t *testing.T) {
	app := newTestApp(t)
	h := app.router()

	for _, path := range []string{"/admin", "/admin/events", "/admin/categories/new"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusSeeOther {
			t.Errorf("%s status = %d, want %d", path, rec.Code, http.StatusSeeOther)
		}
		if loc := rec.Header().Get("Location"); loc != RouteLogin {
			t.Errorf("%s Location = %q, want %q", path, loc, RouteLogin)
		}
	}
}

func TestRouter_LoginFlow(t *testing.T) {
	app := newTestApp(t)
	h := app.router()
	app.createEvent(t, event.Input{Title: "Pending Review"})

	cookie := app.login(t, h)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Welcome back") {
		t.Error("dashboard should show the welcome flash")
	}
	if !strings.Contains(body, testAdminEmail) {
		t.Error("dashboard should show the operator")
	}

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != RouteAdmin {
		t.Errorf("signed-in login page: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRouter_LoginRejectsWrongPassword(t *testing.T) {
	app := newTestApp(t)
	h := app.router()

	tests := []struct {
		name   string
		values url.Values
	}{
		{"wrong password", url.Values{"email": {testAdminEmail}, "password": {"nope"}}},
		{"unknown user", url.Values{"email": {"who@example.org"}, "password": {testAdminPassword}}},
		{"missing fields", url.Values{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, postForm("/login", tt.values))
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
			}
			if loc := rec.Header().Get("Location"); loc != RouteLogin {
				t.Errorf("Location = %q, want %q", loc, RouteLogin)
			}
		})
	}
}

func TestRouter_PublicPages(t *testing.T) {
	app := newTestApp(t)
	h := app.router()

	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/suggest", http.StatusOK},
		{"/feedback", http.StatusOK},
		{"/login", http.StatusOK},
		{"/events/missing", http.StatusNotFound},
		{"/no/such/page", http.StatusNotFound},
		{"/static/app.css", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCreateEvent(t *testing.T) {
	app := newTestApp(t)

	req := postForm("/admin/events", url.Values{
		event.FieldTitle:     {"Moon Gathering"},
		event.FieldDateStart: {futureDate},
	})
	rec := app.serve(app.admin().CreateEvent, req, app.operator, nil)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	e, err := store.New(app.db).GetEventBySlug(context.Background(), "moon-gathering")
	if err != nil {
		t.Fatalf("event not stored: %v", err)
	}
	if loc := rec.Header().Get("Location"); loc != editURL(e.ID) {
		t.Errorf("Location = %q, want %q", loc, editURL(e.ID))
	}
	if e.Status != string(event.StatusDraft) {
		t.Errorf("Status = %q, want DRAFT", e.Status)
	}
}

func TestCreateEvent_ValidationErrors(t *testing.T) {
	app := newTestApp(t)
	app.createEvent(t, event.Input{Title: "Moon Gathering"})

	tests := []struct {
		name   string
		values url.Values
		want   string
	}{
		{"title required", url.Values{event.FieldTitle: {"  "}}, "Title is required"},
		{"title taken in any case", url.Values{event.FieldTitle: {"moon  GATHERING"}}, service.MsgTitleTaken},
		{"bad link", url.Values{event.FieldTitle: {"Sun Dance"}, event.FieldLinkWebsite: {"example.org"}}, "Link must be a full http:// or https:// address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(app.admin().CreateEvent, postForm("/admin/events", tt.values), app.operator, nil)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
}

func TestUpdateEvent_KeepsLockedSlug(t *testing.T) {
	app := newTestApp(t)
	e := app.createEvent(t, event.Input{Title: "Moon Gathering", Slug: "full-moon", SlugModified: true})

	req := postForm("/admin/events/"+e.ID, url.Values{
		event.FieldTitle: {"Moon Gathering Autumn"},
		event.FieldSlug:  {"full-moon"},
		formSlugModified: {"true"},
	})
	rec := app.serve(app.admin().UpdateEvent, req, app.operator, map[string]string{"id": e.ID})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusSeeOther, rec.Body.String())
	}

	got, err := store.New(app.db).GetEventByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("GetEventByID: %v", err)
	}
	if got.Slug != "full-moon" || got.Title != "Moon Gathering Autumn" {
		t.Errorf("got slug %q title %q", got.Slug, got.Title)
	}
}

func TestUpdateEvent_ValidationErrorShowsStoredEvent(t *testing.T) {
	app := newTestApp(t)
	e := app.createEvent(t, event.Input{Title: "Moon Gathering"})

	req := postForm("/admin/events/"+e.ID, url.Values{event.FieldTitle: {""}})
	rec := app.serve(app.admin().UpdateEvent, req, app.operator, map[string]string{"id": e.ID})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "/admin/events/"+e.ID+"/publish") {
		t.Error("form should keep the actions of the stored event")
	}
}

func TestEditEvent_NotFound(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/events/missing/edit", nil)
	rec := app.serve(app.admin().EditEvent, req, app.operator, map[string]string{"id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestPublishEvent(t *testing.T) {
	app := newTestApp(t)
	undated := app.createEvent(t, event.Input{Title: "Undated"})
	dated := app.createEvent(t, event.Input{Title: "Dated", Schedule: event.Schedule{DateStart: futureDate}})
	queries := store.New(app.db)

	rec := app.serve(app.admin().PublishEvent, postForm("/", nil), app.operator, map[string]string{"id": undated.ID})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != editURL(undated.ID) {
		t.Errorf("publish undated: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	got, _ := queries.GetEventByID(context.Background(), undated.ID)
	if got.Status != string(event.StatusDraft) {
		t.Errorf("undated status = %q, want DRAFT", got.Status)
	}

	app.serve(app.admin().PublishEvent, postForm("/", nil), app.operator, map[string]string{"id": dated.ID})
	got, _ = queries.GetEventByID(context.Background(), dated.ID)
	if got.Status != string(event.StatusPublished) {
		t.Errorf("dated status = %q, want PUBLISHED", got.Status)
	}

	app.serve(app.admin().DraftEvent, postForm("/", nil), app.operator, map[string]string{"id": dated.ID})
	got, _ = queries.GetEventByID(context.Background(), dated.ID)
	if got.Status != string(event.StatusDraft) {
		t.Errorf("status after draft = %q, want DRAFT", got.Status)
	}
}

func TestDeleteEvent(t *testing.T) {
	app := newTestApp(t)
	a := app.createEvent(t, event.Input{Title: "First"})
	b := app.createEvent(t, event.Input{Title: "Second"})

	req := httptest.NewRequest(http.MethodDelete, "/admin/events/"+a.ID, nil)
	req.Header.Set("HX-Request", "true")
	rec := app.serve(app.admin().DeleteEvent, req, app.operator, map[string]string{"id": a.ID})
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("htmx delete: status %d body %q", rec.Code, rec.Body.String())
	}

	rec = app.serve(app.admin().DeleteEvent, postForm("/admin/events/"+b.ID+"/delete", nil), app.operator, map[string]string{"id": b.ID})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != redirectAdminEvents {
		t.Errorf("form delete: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}

	n, err := store.New(app.db).CountEvents(context.Background(), store.EventFilter{})
	if err != nil || n != 0 {
		t.Errorf("events left = %d, %v", n, err)
	}

	rec = app.serve(app.admin().DeleteEvent, postForm("/", nil), app.operator, map[string]string{"id": a.ID})
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleting twice: status %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAdmin_AnonymousIsSentToLogin(t *testing.T) {
	app := newTestApp(t)
	e := app.createEvent(t, event.Input{Title: "Guarded"})

	rec := app.serve(app.admin().PublishEvent, postForm("/", nil), auth.Anonymous, map[string]string{"id": e.ID})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != RouteLogin {
		t.Errorf("status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestEventsList(t *testing.T) {
	app := newTestApp(t)
	app.createEvent(t, event.Input{Title: "Draft One"})
	app.publishEvent(t, event.Input{Title: "Live One", Schedule: event.Schedule{DateStart: futureDate}})

	req := httptest.NewRequest(http.MethodGet, "/admin/events?status=DRAFT", nil)
	rec := app.serve(app.admin().Events, req, app.operator, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Draft One") || strings.Contains(body, "Live One") {
		t.Errorf("status filter not applied: %s", body)
	}
}

func TestSlug(t *testing.T) {
	app := newTestApp(t)
	app.createEvent(t, event.Input{Title: "Taken Title"})

	tests := []struct {
		name         string
		values       url.Values
		wantSlug     string
		wantModified bool
		wantTaken    bool
	}{
		{
			name:     "free mode follows title",
			values:   url.Values{"source": {"title"}, event.FieldTitle: {"Moon Gathering"}, event.FieldSlug: {"old"}},
			wantSlug: "moon-gathering",
		},
		{
			name:         "typing a different slug locks it",
			values:       url.Values{"source": {"slug"}, event.FieldTitle: {"Moon Gathering"}, event.FieldSlug: {"full-moon"}},
			wantSlug:     "full-moon",
			wantModified: true,
		},
		{
			name:         "locked slug ignores title",
			values:       url.Values{"source": {"title"}, event.FieldTitle: {"Sun Dance"}, event.FieldSlug: {"full-moon"}, formSlugModified: {"true"}},
			wantSlug:     "full-moon",
			wantModified: true,
		},
		{
			name:         "final mode trims",
			values:       url.Values{"source": {"slug"}, "mode": {"final"}, event.FieldTitle: {"Yoga"}, event.FieldSlug: {"Hatha Yoga-"}},
			wantSlug:     "hatha-yoga",
			wantModified: true,
		},
		{
			name:      "taken slug is flagged",
			values:    url.Values{"source": {"title"}, event.FieldTitle: {"Taken Title"}},
			wantSlug:  "taken-title",
			wantTaken: true,
		},
		{
			name:     "categories use the name field",
			values:   url.Values{"source": {"title"}, "kind": {"category"}, event.FieldName: {"Taken Title"}},
			wantSlug: "taken-title",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(app.admin().Slug, postForm("/admin/slug", tt.values), app.operator, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			body := rec.Body.String()
			if !strings.Contains(body, `value="`+tt.wantSlug+`"`) {
				t.Errorf("slug %q not in %s", tt.wantSlug, body)
			}
			modified := `name="slugModified" value="false"`
			if tt.wantModified {
				modified = `name="slugModified" value="true"`
			}
			if !strings.Contains(body, modified) {
				t.Errorf("want %s in %s", modified, body)
			}
			if taken := strings.Contains(body, service.MsgEventSlugTaken); taken != tt.wantTaken {
				t.Errorf("taken = %v, want %v", taken, tt.wantTaken)
			}
		})
	}
}

func TestCategoriesAdmin(t *testing.T) {
	app := newTestApp(t)
	admin := app.admin()

	rec := app.serve(admin.CreateCategory, postForm("/admin/categories", url.Values{event.FieldName: {"Sacred Dance"}}), app.operator, nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != redirectAdminCats {
		t.Fatalf("create: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	cat, err := app.categories.GetBySlug(context.Background(), "sacred-dance")
	if err != nil {
		t.Fatalf("category not stored: %v", err)
	}

	rec = app.serve(admin.CreateCategory, postForm("/admin/categories", url.Values{event.FieldName: {"sacred dance"}}), app.operator, nil)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), service.MsgCategoryNameTaken) {
		t.Errorf("duplicate: status %d", rec.Code)
	}

	app.createEvent(t, event.Input{Title: "Ecstatic Dance", CategoryIDs: []string{cat.ID}})
	rec = app.serve(admin.Categories, httptest.NewRequest(http.MethodGet, "/admin/categories", nil), app.operator, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<td>1</td>") {
		t.Errorf("list should show usage: %s", rec.Body.String())
	}

	rec = app.serve(admin.EditCategory, httptest.NewRequest(http.MethodGet, "/", nil), app.operator, map[string]string{"id": cat.ID})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `value="Sacred Dance"`) {
		t.Errorf("edit form: status %d", rec.Code)
	}

	rec = app.serve(admin.UpdateCategory, postForm("/", url.Values{event.FieldName: {"Dance"}}), app.operator, map[string]string{"id": cat.ID})
	if rec.Code != http.StatusSeeOther {
		t.Errorf("update: status %d", rec.Code)
	}
	if _, err := app.categories.GetBySlug(context.Background(), "dance"); err != nil {
		t.Errorf("renamed category slug should follow the name: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec = app.serve(admin.DeleteCategory, req, app.operator, map[string]string{"id": cat.ID})
	if rec.Code != http.StatusOK {
		t.Errorf("delete: status %d", rec.Code)
	}
	if _, err := app.categories.GetByID(context.Background(), cat.ID); !errors.Is(err, event.ErrNotFound) {
		t.Errorf("category should be gone, got %v", err)
	}
}

func TestSubscribersAndFeedbackInbox(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	if _, err := app.newsletter.Subscribe(ctx, "ana@example.org"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := app.feedback.Submit(ctx, service.FeedbackInput{Message: "Lovely calendar"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rec := app.serve(app.admin().Subscribers, httptest.NewRequest(http.MethodGet, "/", nil), app.operator, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ana@example.org") {
		t.Errorf("subscribers: status %d", rec.Code)
	}

	rec = app.serve(app.admin().FeedbackInbox, httptest.NewRequest(http.MethodGet, "/", nil), app.operator, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Lovely calendar") {
		t.Errorf("feedback inbox: status %d", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.events.Suggest(context.Background(), auth.Anonymous, service.EventForm{Input: event.Input{Title: "From a Visitor"}}); err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	rec := app.serve(app.admin().Dashboard, httptest.NewRequest(http.MethodGet, "/admin", nil), app.operator, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "From a Visitor") {
		t.Error("dashboard should list the suggestion")
	}
}
