// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers of the public site and the
// operator admin.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/render"
)

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST/PUT/DELETE redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	redirect(w, r, url)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashError)
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashSuccess)
}

// flashResult redirects with a success flash, or a warning flash listing the
// collaborator warnings when there are any.
func flashResult(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string, warnings []string) {
	if len(warnings) > 0 {
		flashAndRedirect(w, r, renderer, url, message+" "+strings.Join(warnings, " "), render.FlashWarning)
		return
	}
	flashSuccess(w, r, renderer, url, message)
}

// redirect sends a 303, or an HX-Redirect header for htmx requests so the
// whole page is replaced.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// pages renders full pages and the shared error pages.
type pages struct {
	renderer *render.Renderer
}

// render writes a page, falling back to a plain 500 when the template fails.
func (p pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data render.TemplateData) {
	if err := p.renderer.Render(w, r, status, name, data); err != nil {
		logAndInternalError(w, "failed to render template", "template", name, "error", err)
	}
}

func (p pages) fragment(w http.ResponseWriter, r *http.Request, name string, data render.TemplateData) {
	if err := p.renderer.RenderFragment(w, r, http.StatusOK, name, data); err != nil {
		logAndInternalError(w, "failed to render fragment", "fragment", name, "error", err)
	}
}

// notFound renders the one 404 page used for missing and hidden records.
func (p pages) notFound(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusNotFound, "errors/404", render.TemplateData{Title: "Not found"})
}

func (p pages) serverError(w http.ResponseWriter, r *http.Request, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	p.render(w, r, http.StatusInternalServerError, "errors/500", render.TemplateData{Title: "Something went wrong"})
}

// serviceError answers the errors a service call can return that are not
// validation errors. back is where transition errors are reported.
func (p pages) serviceError(w http.ResponseWriter, r *http.Request, err error, back string) {
	switch {
	case errors.Is(err, event.ErrNotFound):
		p.notFound(w, r)
	case errors.Is(err, event.ErrForbidden):
		redirect(w, r, routeLogin)
	case errors.Is(err, event.ErrPublishWithoutDate):
		flashError(w, r, p.renderer, back, "Add a start date before publishing.")
	case errors.Is(err, event.ErrImageMissing):
		flashError(w, r, p.renderer, back, "The event image is missing from storage. Upload it again or remove it before publishing.")
	case errors.Is(err, event.ErrInvalidTransition):
		flashError(w, r, p.renderer, back, "The event is already in that state.")
	default:
		p.serverError(w, r, "request failed", "path", r.URL.Path, "error", err)
	}
}
