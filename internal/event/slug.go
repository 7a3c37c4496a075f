// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package event

import "github.com/petrpacas/spiritevents-sub000/internal/util"

// Slug normalizes text into an event or category slug.
func Slug(text string) string {
	return util.Slugify(text, util.WithExclude(util.DefaultSlugExclude))
}

// LiveSlug normalizes text while it is still being typed.
func LiveSlug(text string) string {
	return util.Slugify(text, util.WithExclude(util.DefaultSlugExclude), util.Live())
}

// SlugEditor tracks the slug field of a form being edited.
//
// In free mode the slug follows the title. Once the operator types a slug
// that differs from the one derived from the title the editor is locked:
// ManuallyModified stays true and title changes leave the slug alone.
type SlugEditor struct {
	Title            string
	Slug             string
	ManuallyModified bool
}

// NewSlugEditor starts an editing session. An existing record whose stored
// slug no longer matches its title starts locked.
func NewSlugEditor(title, slug string) SlugEditor {
	return SlugEditor{
		Title:            title,
		Slug:             slug,
		ManuallyModified: slug != "" && slug != Slug(title),
	}
}

// OnTitleChange updates the title and, in free mode, the slug.
func (e *SlugEditor) OnTitleChange(title string) {
	e.Title = title
	if !e.ManuallyModified {
		e.Slug = LiveSlug(title)
	}
}

// OnSlugInput records a slug typed by the operator.
func (e *SlugEditor) OnSlugInput(value string) {
	e.Slug = LiveSlug(value)
	if Slug(e.Slug) != Slug(e.Title) {
		e.ManuallyModified = true
	}
}

// Finalize applies the final normalization and returns the slug. An empty
// slug falls back to the title.
func (e *SlugEditor) Finalize() string {
	s := Slug(e.Slug)
	if s == "" {
		s = Slug(e.Title)
	}
	e.Slug = s
	return s
}
