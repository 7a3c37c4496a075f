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

const (
	msgCategoryCreated = "Category created."
	msgCategoryUpdated = "Category saved."
	msgCategoryDeleted = "Category deleted."
)

// Categories lists the categories with their usage.
// GET /admin/categories
func (h *AdminHandler) Categories(w http.ResponseWriter, r *http.Request) {
	list, err := h.categories.ListWithUsage(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		h.serviceError(w, r, err, redirectAdmin)
		return
	}
	h.render(w, r, http.StatusOK, "admin/categories", render.TemplateData{Title: "Categories", Data: list})
}

// CategoryFormData is the data of the category form.
type CategoryFormData struct {
	Category *store.Category
	Action   string
}

func (h *AdminHandler) renderCategoryForm(w http.ResponseWriter, r *http.Request, status int, c *store.Category, in service.CategoryInput, errs event.ValidationError) {
	data := CategoryFormData{Category: c, Action: redirectAdminCats}
	title := "New category"
	if c != nil {
		data.Action = redirectAdminCats + "/" + c.ID
		title = "Edit " + c.Name
	}
	h.render(w, r, status, "admin/category_form", render.TemplateData{
		Title:  title,
		Data:   data,
		Form:   in,
		Errors: errs,
	})
}

// NewCategory shows an empty category form.
// GET /admin/categories/new
func (h *AdminHandler) NewCategory(w http.ResponseWriter, r *http.Request) {
	h.renderCategoryForm(w, r, http.StatusOK, nil, service.CategoryInput{}, nil)
}

// CreateCategory stores a new category.
// POST /admin/categories
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, redirectAdminCats+RouteSuffixNew, msgInvalidForm)
		return
	}
	in := categoryInputFromForm(r)

	_, err := h.categories.Create(r.Context(), middleware.GetPrincipal(r), in)
	if errs, ok := event.AsValidation(err); ok {
		h.renderCategoryForm(w, r, http.StatusUnprocessableEntity, nil, in, errs)
		return
	}
	if err != nil {
		h.serviceError(w, r, err, redirectAdminCats)
		return
	}
	flashSuccess(w, r, h.renderer, redirectAdminCats, msgCategoryCreated)
}

// EditCategory shows the form of a stored category.
// GET /admin/categories/{id}/edit
func (h *AdminHandler) EditCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, r, err, redirectAdminCats)
		return
	}
	in := service.CategoryInput{
		Name:         c.Name,
		Slug:         c.Slug,
		SlugModified: event.NewSlugEditor(c.Name, c.Slug).ManuallyModified,
	}
	h.renderCategoryForm(w, r, http.StatusOK, &c, in, nil)
}

// UpdateCategory saves an edited category.
// POST /admin/categories/{id}
func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, redirectAdminCats, msgInvalidForm)
		return
	}
	in := categoryInputFromForm(r)

	_, err := h.categories.Update(r.Context(), middleware.GetPrincipal(r), id, in)
	if errs, ok := event.AsValidation(err); ok {
		c, getErr := h.categories.GetByID(r.Context(), id)
		if getErr != nil {
			h.serviceError(w, r, getErr, redirectAdminCats)
			return
		}
		h.renderCategoryForm(w, r, http.StatusUnprocessableEntity, &c, in, errs)
		return
	}
	if err != nil {
		h.serviceError(w, r, err, redirectAdminCats)
		return
	}
	flashSuccess(w, r, h.renderer, redirectAdminCats, msgCategoryUpdated)
}

// DeleteCategory removes a category and untags its events.
// DELETE /admin/categories/{id}, POST /admin/categories/{id}/delete
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), middleware.GetPrincipal(r), chi.URLParam(r, "id")); err != nil {
		h.serviceError(w, r, err, redirectAdminCats)
		return
	}
	if isHTMX(r) {
		w.WriteHeader(http.StatusOK)
		return
	}
	flashSuccess(w, r, h.renderer, redirectAdminCats, msgCategoryDeleted)
}
