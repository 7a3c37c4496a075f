// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/geoip"
	"github.com/petrpacas/spiritevents-sub000/internal/middleware"
	"github.com/petrpacas/spiritevents-sub000/internal/render"
	"github.com/petrpacas/spiritevents-sub000/internal/seo"
	"github.com/petrpacas/spiritevents-sub000/internal/service"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

// Public page messages.
const (
	msgSuggestionThanks = "Thank you! Your suggestion will appear once it has been reviewed."
	msgFeedbackThanks   = "Thank you for your feedback."
	msgSubscribed       = "You are subscribed. Watch your inbox for upcoming gatherings."
	msgAlreadySubbed    = "This address is already subscribed."
	msgInvalidForm      = "The form could not be read. Please try again."
)

// PublicHandler serves the public event directory.
type PublicHandler struct {
	pages
	events     *service.EventService
	categories *service.CategoryService
	newsletter *service.NewsletterService
	feedback   *service.FeedbackService
	geo        *geoip.Locator
	site       seo.SiteConfig
	// blockCrawlers makes robots.txt disallow everything.
	blockCrawlers bool
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(renderer *render.Renderer, events *service.EventService, categories *service.CategoryService, newsletter *service.NewsletterService, feedback *service.FeedbackService) *PublicHandler {
	return &PublicHandler{
		pages:      pages{renderer: renderer},
		events:     events,
		categories: categories,
		newsletter: newsletter,
		feedback:   feedback,
	}
}

// ListingFilter is the filter form of the public listing.
type ListingFilter struct {
	Query    string
	Category string
	Country  string
	Past     bool
}

// ListingData is the data of the home page and its search fragment.
type ListingData struct {
	Filter     ListingFilter
	Groups     []service.MonthGroup
	Total      int64
	Pagination Pagination
	Facets     service.Facets
	// Category is set on category pages.
	Category *store.Category
}

func filterFromQuery(q url.Values) ListingFilter {
	return ListingFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Country:  q.Get("country"),
		Past:     q.Get("past") != "",
	}
}

// listing loads a page of published events for the filter.
func (h *PublicHandler) listing(r *http.Request, filter ListingFilter, baseURL string) (ListingData, error) {
	query := r.URL.Query()
	page, err := h.events.List(r.Context(), middleware.GetPrincipal(r), service.ListOptions{
		Status:       event.StatusPublished,
		Query:        filter.Query,
		CategorySlug: filter.Category,
		Country:      filter.Country,
		Past:         filter.Past,
		Page:         pageParam(query),
	})
	if err != nil {
		return ListingData{}, err
	}

	facets, err := h.events.Facets(r.Context())
	if err != nil {
		// The listing still works without filter choices.
		slog.Warn("failed to load facets", "error", err)
	}

	return ListingData{
		Filter:     filter,
		Groups:     service.GroupByMonth(page.Events),
		Total:      page.Total,
		Pagination: buildPagination(page, baseURL, query),
		Facets:     facets,
	}, nil
}

// Home lists upcoming published events grouped by month.
// GET /
func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	data, err := h.listing(r, filterFromQuery(r.URL.Query()), RouteRoot)
	if err != nil {
		h.serverError(w, r, "failed to list events", "error", err)
		return
	}
	h.render(w, r, http.StatusOK, "public/home", render.TemplateData{Data: data, Meta: seo.HomeMeta(h.site, RouteRoot)})
}

// Search renders only the event list for htmx filter updates.
// GET /events/search
func (h *PublicHandler) Search(w http.ResponseWriter, r *http.Request) {
	data, err := h.listing(r, filterFromQuery(r.URL.Query()), RouteRoot)
	if err != nil {
		logAndInternalError(w, "failed to search events", "error", err)
		return
	}
	h.fragment(w, r, "events", render.TemplateData{Data: data})
}

// Event shows one event. Unpublished events are only shown to operators.
// GET /events/{slug}
func (h *PublicHandler) Event(w http.ResponseWriter, r *http.Request) {
	view, err := h.events.GetBySlug(r.Context(), middleware.GetPrincipal(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.serviceError(w, r, err, RouteRoot)
		return
	}
	h.render(w, r, http.StatusOK, "public/event", render.TemplateData{
		Title: view.Title,
		Data:  view,
		Meta:  seo.EventMeta(h.eventPage(view), h.site),
	})
}

// Category lists the upcoming events of one category.
// GET /category/{slug}
func (h *PublicHandler) Category(w http.ResponseWriter, r *http.Request) {
	cat, err := h.categories.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.serviceError(w, r, err, RouteRoot)
		return
	}

	filter := filterFromQuery(r.URL.Query())
	filter.Category = cat.Slug
	data, err := h.listing(r, filter, "/category/"+cat.Slug)
	if err != nil {
		h.serverError(w, r, "failed to list category events", "category", cat.Slug, "error", err)
		return
	}
	data.Category = &cat
	meta := seo.HomeMeta(h.site, "/category/"+cat.Slug)
	meta.Title = cat.Name
	h.render(w, r, http.StatusOK, "public/category", render.TemplateData{Title: cat.Name, Data: data, Meta: meta})
}

func (h *PublicHandler) eventPage(view service.EventView) seo.EventPage {
	return seo.EventPage{
		Title:       view.Title,
		Slug:        view.Slug,
		Description: view.Description,
		ImageURL:    h.renderer.ImageURL(view.ImageKey),
		DateStart:   view.DateStart,
		DateEnd:     view.DateEnd,
		TimeStart:   view.TimeStart,
		TimeEnd:     view.TimeEnd,
		Location:    view.Location,
		Region:      view.Region,
		Country:     view.Country,
		TicketsURL:  view.LinkTickets,
		WebsiteURL:  view.LinkWebsite,
		Published:   view.Status == string(event.StatusPublished),
	}
}

// Sitemap lists the home page, every published event and every category.
// GET /sitemap.xml
func (h *PublicHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.PublishedSlugs(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list events for sitemap", "error", err)
		return
	}
	cats, err := h.categories.List(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list categories for sitemap", "error", err)
		return
	}

	b := seo.NewSitemapBuilder(h.site.SiteURL)
	b.AddHomepage()
	for _, e := range events {
		b.AddEvent(e.Slug, e.UpdatedAt)
	}
	for _, c := range cats {
		b.AddCategory(c.Slug, c.UpdatedAt)
	}
	data, err := b.Build()
	if err != nil {
		logAndInternalError(w, "failed to build sitemap", "error", err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

// Robots serves robots.txt.
// GET /robots.txt
func (h *PublicHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(seo.Robots(h.site.SiteURL, h.blockCrawlers)))
}

// SuggestFormData is the data of the suggestion form.
type SuggestFormData struct {
	Categories []store.Category
}

func (h *PublicHandler) renderSuggest(w http.ResponseWriter, r *http.Request, status int, in event.Input, errs event.ValidationError) {
	cats, err := h.categories.List(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to list categories", "error", err)
		return
	}
	h.render(w, r, status, "public/suggest", render.TemplateData{
		Title:  "Suggest an event",
		Data:   SuggestFormData{Categories: cats},
		Form:   in,
		Errors: errs,
	})
}

// SuggestForm shows the public suggestion form.
// GET /suggest
func (h *PublicHandler) SuggestForm(w http.ResponseWriter, r *http.Request) {
	h.renderSuggest(w, r, http.StatusOK, event.Input{Country: h.geo.Country(middleware.ClientIP(r))}, nil)
}

// Suggest stores a suggestion for review.
// POST /suggest
func (h *PublicHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	form, closeFile, err := eventFormFromRequest(w, r)
	defer closeFile()
	if err != nil {
		flashError(w, r, h.renderer, RouteSuggest, msgInvalidForm)
		return
	}

	res, err := h.events.Suggest(r.Context(), middleware.GetPrincipal(r), form)
	if errs, ok := event.AsValidation(err); ok {
		h.renderSuggest(w, r, http.StatusUnprocessableEntity, form.Input, errs)
		return
	}
	if err != nil {
		h.serviceError(w, r, err, RouteSuggest)
		return
	}

	flashResult(w, r, h.renderer, RouteRoot, msgSuggestionThanks, res.Warnings)
}

// NewsletterData is the data of the newsletter fragment.
type NewsletterData struct {
	Email      string
	Subscribed bool
	Message    string
}

// Newsletter subscribes an address. htmx requests get the form fragment
// back; plain posts are redirected home with a flash.
// POST /newsletter
func (h *PublicHandler) Newsletter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, RouteRoot, msgInvalidForm)
		return
	}
	email := r.FormValue(event.FieldEmail)

	created, err := h.newsletter.Subscribe(r.Context(), email)
	errs, invalid := event.AsValidation(err)
	if err != nil && !invalid {
		logAndInternalError(w, "failed to subscribe", "error", err)
		return
	}

	msg := msgSubscribed
	if !created {
		msg = msgAlreadySubbed
	}

	if isHTMX(r) {
		data := NewsletterData{Email: email, Subscribed: !invalid, Message: msg}
		if invalid {
			data.Message = ""
		}
		h.fragment(w, r, "newsletter", render.TemplateData{Data: data, Errors: errs})
		return
	}

	if invalid {
		flashError(w, r, h.renderer, RouteRoot, errs[event.FieldEmail])
		return
	}
	flashSuccess(w, r, h.renderer, RouteRoot, msg)
}

// FeedbackForm shows the feedback form.
// GET /feedback
func (h *PublicHandler) FeedbackForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "public/feedback", render.TemplateData{
		Title: "Feedback",
		Form:  service.FeedbackInput{},
	})
}

// Feedback stores a feedback message.
// POST /feedback
func (h *PublicHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, RouteFeedback, msgInvalidForm)
		return
	}
	in := feedbackInputFromForm(r)
	in.Country = h.geo.Country(middleware.ClientIP(r))

	_, err := h.feedback.Submit(r.Context(), in)
	if errs, ok := event.AsValidation(err); ok {
		h.render(w, r, http.StatusUnprocessableEntity, "public/feedback", render.TemplateData{
			Title:  "Feedback",
			Form:   in,
			Errors: errs,
		})
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to store feedback", "error", err)
		return
	}

	flashSuccess(w, r, h.renderer, RouteRoot, msgFeedbackThanks)
}
