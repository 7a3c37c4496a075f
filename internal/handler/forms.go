// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/service"
)

// Form field names that are not validation keys.
const (
	formSlugModified = "slugModified"
	formRemoveImage  = "removeImage"
)

// parseForm parses a multipart or urlencoded body.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// formBool reads a checkbox or hidden boolean field.
func formBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.FormValue(name)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// eventInputFromForm reads the event fields of a parsed form.
func eventInputFromForm(r *http.Request) event.Input {
	return event.Input{
		Title:        r.FormValue(event.FieldTitle),
		Slug:         r.FormValue(event.FieldSlug),
		SlugModified: formBool(r, formSlugModified),
		Schedule: event.Schedule{
			DateStart: r.FormValue(event.FieldDateStart),
			DateEnd:   r.FormValue(event.FieldDateEnd),
			TimeStart: r.FormValue(event.FieldTimeStart),
			TimeEnd:   r.FormValue(event.FieldTimeEnd),
		},
		Location:    r.FormValue(event.FieldLocation),
		Country:     r.FormValue(event.FieldCountry),
		Region:      r.FormValue(event.FieldRegion),
		LinkWebsite: r.FormValue(event.FieldLinkWebsite),
		LinkTickets: r.FormValue(event.FieldLinkTickets),
		LinkMap:     r.FormValue(event.FieldLinkMap),
		LinkSocial:  r.FormValue(event.FieldLinkSocial),
		Description: r.FormValue(event.FieldDescription),
		CategoryIDs: r.Form[event.FieldCategories],
	}
}

// eventFormFromRequest parses an event form with its optional image. The
// returned close func releases the uploaded file and is never nil.
func eventFormFromRequest(w http.ResponseWriter, r *http.Request) (service.EventForm, func(), error) {
	noop := func() {}
	if err := parseForm(w, r); err != nil {
		return service.EventForm{}, noop, err
	}

	form := service.EventForm{
		Input:       eventInputFromForm(r),
		RemoveImage: formBool(r, formRemoveImage),
	}
	if r.MultipartForm == nil {
		return form, noop, nil
	}

	file, header, err := r.FormFile(event.FieldImage)
	if errors.Is(err, http.ErrMissingFile) {
		return form, noop, nil
	}
	if err != nil {
		return form, noop, err
	}
	form.Image = &service.Upload{Filename: header.Filename, Reader: file}
	return form, func() { _ = file.Close() }, nil
}

func categoryInputFromForm(r *http.Request) service.CategoryInput {
	return service.CategoryInput{
		Name:         r.FormValue(event.FieldName),
		Slug:         r.FormValue(event.FieldSlug),
		SlugModified: formBool(r, formSlugModified),
	}
}

func feedbackInputFromForm(r *http.Request) service.FeedbackInput {
	return service.FeedbackInput{
		Name:    r.FormValue(event.FieldName),
		Email:   r.FormValue(event.FieldEmail),
		Message: r.FormValue(event.FieldMessage),
		Client:  clientSummary(r.UserAgent()),
	}
}
