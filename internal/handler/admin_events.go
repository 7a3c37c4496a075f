// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/middleware"
	"github.com/petrpacas/spiritevents-sub000/internal/render"
	"github.com/petrpacas/spiritevents-sub000/internal/service"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

// Admin event messages.
const (
	msgEventCreated   = "Event created."
	msgEventUpdated   = "Event saved."
	msgEventPublished = "Event published."
	msgEventDraft     = "Event moved back to drafts."
	msgEventDeleted   = "Event deleted."
)

// AdminHandler serves the operator admin.
type AdminHandler struct {
	pages
	events     *service.EventService
	categories *service.CategoryService
	newsletter *service.NewsletterService
	feedback   *service.FeedbackService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(renderer *render.Renderer, events *service.EventService, categories *service.CategoryService, newsletter *service.NewsletterService, feedback *service.FeedbackService) *AdminHandler {
	return &AdminHandler{
		pages:      pages{renderer: renderer},
		events:     events,
		categories: categories,
		newsletter: newsletter,
		feedback:   feedback,
	}
}

// DashboardData is the data of the admin dashboard.
type DashboardData struct {
	Counts      map[string]int64
	Suggestions []service.EventView
}

// Dashboard shows event counts and the latest suggestions.
// GET /admin
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r)

	counts, err := h.events.StatusCounts(r.Context(), p)
	if err != nil {
		h.serviceError(w, r, err, redirectAdmin)
		return
	}
	suggestions, err := h.events.List(r.Context(), p, service.ListOptions{
		Status:  event.StatusSuggested,
		AnyDate: true,
		PerPage: 5,
	})
	if err != nil {
		h.serverError(w, r, "failed to list suggestions", "error", err)
		return
	}

	h.render(w, r, http.StatusOK, "admin/dashboard", render.TemplateData{
		Title: "Dashboard",
		Data:  DashboardData{Counts: counts, Suggestions: suggestions.Events},
	})
}

// EventsListData is the data of the admin event list.
type EventsListData struct {
	Events     []service.EventView
	Statuses   []event.Status
	Status     string
	Period     string
	Query      string
	Pagination Pagination
}

// Periods of the admin event list.
const (
	periodAll      = ""
	periodUpcoming = "upcoming"
	periodPast     = "past"
)

// Events lists every event with status, period and text filters.
// GET /admin/events
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status, _ := event.ParseStatus(query.Get("status"))
	period := query.Get("period")

	opts := service.ListOptions{
		Status: status,
		Query:  query.Get("q"),
		Page:   pageParam(query),
	}
	switch period {
	case periodUpcoming:
	case periodPast:
		opts.Past = true
	default:
		period = periodAll
		opts.AnyDate = true
	}

	page, err := h.events.List(r.Context(), middleware.GetPrincipal(r), opts)
	if err != nil {
		h.serverError(w, r, "failed to list events", "error", err)
		return
	}

	h.render(w, r, http.StatusOK, "admin/events", render.TemplateData{
		Title: "Events",
		Data: EventsListData{
			Events:     page.Events,
			Statuses:   event.Statuses,
			Status:     string(status),
			Period:     period,
			Query:      opts.Query,
			Pagination: buildPagination(page, redirectAdminEvents, query),
		},
	})
}

// EventFormData is the data of the event form.
type EventFormData struct {
	// Event is the stored event when editing.
	Event      *service.EventView
	Categories []store.Category
	Action     string
}

func (h *AdminHandler) renderEventForm(w http.ResponseWriter, r *http.Request, status int, view *service.EventView, in event.Input, errs event.ValidationError) {
	cats, err := h.categories.List(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to list categories", "error", err)
		return
	}

	data := EventFormData{Event: view, Categories: cats, Action: redirectAdminEvents}
	title := "New event"
	if view != nil {
		data.Action = redirectAdminEventsS + view.ID
		title = "Edit " + view.Title
	}
	h.render(w, r, status, "admin/event_form", render.TemplateData{
		Title:  title,
		Data:   data,
		Form:   in,
		Errors: errs,
	})
}

// NewEvent shows an empty event form.
// GET /admin/events/new
func (h *AdminHandler) NewEvent(w http.ResponseWriter, r *http.Request) {
	h.renderEventForm(w, r, http.StatusOK, nil, event.Input{}, nil)
}

// CreateEvent stores a new draft.
// POST /admin/events
func (h *AdminHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	form, closeFile, err := eventFormFromRequest(w, r)
	defer closeFile()
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminEvents+RouteSuffixNew, msgInvalidForm)
		return
	}

	res, err := h.events.Create(r.Context(), middleware.GetPrincipal(r), form)
	if errs, ok := event.AsValidation(err); ok {
		h.renderEventForm(w, r, http.StatusUnprocessableEntity, nil, form.Input, errs)
		return
	}
	if err != nil {
		h.serviceError(w, r, err, redirectAdminEvents)
		return
	}

	flashResult(w, r, h.renderer, editURL(res.Event.ID), msgEventCreated, res.Warnings)
}

// EditEvent shows the form of a stored event.
// GET /admin/events/{id}/edit
func (h *AdminHandler) EditEvent(w http.ResponseWriter, r *http.Request) {
	view, err := h.events.GetByID(r.Context(), middleware.GetPrincipal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, r, err, redirectAdminEvents)
		return
	}
	h.renderEventForm(w, r, http.StatusOK, &view, view.Input(), nil)
}

// UpdateEvent saves an edited event.
// POST /admin/events/{id}
func (h *AdminHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := middleware.GetPrincipal(r)

	form, closeFile, err := eventFormFromRequest(w, r)
	defer closeFile()
	if err != nil {
		flashError(w, r, h.renderer, editURL(id), msgInvalidForm)
		return
	}

	res, err := h.events.Update(r.Context(), p, id, form)
	if errs, ok := event.AsValidation(err); ok {
		view, getErr := h.events.GetByID(r.Context(), p, id)
		if getErr != nil {
			h.serviceError(w, r, getErr, redirectAdminEvents)
			return
		}
		h.renderEventForm(w, r, http.StatusUnprocessableEntity, &view, form.Input, errs)
		return
	}
	if err != nil {
		h.serviceError(w, r, err, editURL(id))
		return
	}

	flashResult(w, r, h.renderer, editURL(id), msgEventUpdated, res.Warnings)
}

// PublishEvent makes an event public.
// POST /admin/events/{id}/publish
func (h *AdminHandler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.events.Publish(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		h.serviceError(w, r, err, editURL(id))
		return
	}
	flashResult(w, r, h.renderer, editURL(id), msgEventPublished, res.Warnings)
}

// DraftEvent takes an event out of public view.
// POST /admin/events/{id}/draft
func (h *AdminHandler) DraftEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.events.SetDraft(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		h.serviceError(w, r, err, editURL(id))
		return
	}
	flashResult(w, r, h.renderer, editURL(id), msgEventDraft, res.Warnings)
}

// DeleteEvent removes an event. htmx requests from the list get an empty
// 200 so the row can be swapped out.
// DELETE /admin/events/{id}, POST /admin/events/{id}/delete
func (h *AdminHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	res, err := h.events.Delete(r.Context(), middleware.GetPrincipal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, r, err, redirectAdminEvents)
		return
	}

	if isHTMX(r) && len(res.Warnings) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}
	flashResult(w, r, h.renderer, redirectAdminEvents, msgEventDeleted, res.Warnings)
}

// SlugData is the data of the slug fragment.
type SlugData struct {
	Slug         string
	SlugModified bool
	// Taken is set when another record already uses the slug.
	Taken bool
}

// Slug previews the slug while an event or category form is edited. The
// source parameter says which field changed; mode=final applies the
// normalization used on save.
// POST /admin/slug
func (h *AdminHandler) Slug(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	editor := event.SlugEditor{
		Title:            r.FormValue(event.FieldTitle),
		Slug:             r.FormValue(event.FieldSlug),
		ManuallyModified: formBool(r, formSlugModified),
	}
	if editor.Title == "" {
		editor.Title = r.FormValue(event.FieldName)
	}

	if r.FormValue("source") == event.FieldSlug {
		editor.OnSlugInput(editor.Slug)
	} else {
		editor.OnTitleChange(editor.Title)
	}
	if r.FormValue("mode") == "final" {
		editor.Finalize()
	}

	data := SlugData{Slug: editor.Slug, SlugModified: editor.ManuallyModified}
	if r.FormValue("kind") != "category" && editor.Slug != "" {
		taken, err := h.events.Uniqueness().IsSlugTaken(r.Context(), event.Slug(editor.Slug), r.FormValue("id"))
		if err != nil {
			logAndInternalError(w, "failed to check slug", "error", err)
			return
		}
		data.Taken = taken
	}

	h.fragment(w, r, "slug", render.TemplateData{Data: data})
}

// Subscribers lists the newsletter subscribers.
// GET /admin/subscribers
func (h *AdminHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.newsletter.Subscribers(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to list subscribers", "error", err)
		return
	}
	h.render(w, r, http.StatusOK, "admin/subscribers", render.TemplateData{Title: "Subscribers", Data: subs})
}

// feedbackPageSize is the number of messages shown in the inbox.
const feedbackPageSize = 100

// FeedbackInbox lists received feedback, newest first.
// GET /admin/feedback
func (h *AdminHandler) FeedbackInbox(w http.ResponseWriter, r *http.Request) {
	list, err := h.feedback.List(r.Context(), feedbackPageSize, 0)
	if err != nil {
		h.serverError(w, r, "failed to list feedback", "error", err)
		return
	}
	h.render(w, r, http.StatusOK, "admin/feedback", render.TemplateData{Title: "Feedback", Data: list})
}

func editURL(id string) string {
	return redirectAdminEventsS + id + RouteSuffixEdit
}
