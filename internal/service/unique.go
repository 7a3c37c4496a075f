// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"

	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

// Uniqueness messages.
const (
	MsgTitleTaken        = "An event with this title already exists"
	MsgEventSlugTaken    = "This slug is already used by another event"
	MsgCategoryNameTaken = "A category with this name already exists"
	MsgCategorySlugTaken = "This slug is already used by another category"
)

// Uniqueness checks titles, names and slugs against the store. All checks
// are case-insensitive and ignore the record with excludingID.
type Uniqueness struct {
	queries *store.Queries
}

// NewUniqueness creates a checker over queries.
func NewUniqueness(queries *store.Queries) *Uniqueness {
	return &Uniqueness{queries: queries}
}

// IsTitleTaken reports whether another event uses title.
func (u *Uniqueness) IsTitleTaken(ctx context.Context, title, excludingID string) (bool, error) {
	n, err := u.queries.CountEventsByTitle(ctx, store.CountEventsByTitleParams{Title: title, ExcludeID: excludingID})
	return n > 0, err
}

// IsSlugTaken reports whether another event uses slug.
func (u *Uniqueness) IsSlugTaken(ctx context.Context, slug, excludingID string) (bool, error) {
	n, err := u.queries.CountEventsBySlug(ctx, store.CountEventsBySlugParams{Slug: slug, ExcludeID: excludingID})
	return n > 0, err
}

// IsCategoryNameTaken reports whether another category uses name.
func (u *Uniqueness) IsCategoryNameTaken(ctx context.Context, name, excludingID string) (bool, error) {
	n, err := u.queries.CountCategoriesByName(ctx, store.CountCategoriesByNameParams{Name: name, ExcludeID: excludingID})
	return n > 0, err
}

// IsCategorySlugTaken reports whether another category uses slug.
func (u *Uniqueness) IsCategorySlugTaken(ctx context.Context, slug, excludingID string) (bool, error) {
	n, err := u.queries.CountCategoriesBySlug(ctx, store.CountCategoriesBySlugParams{Slug: slug, ExcludeID: excludingID})
	return n > 0, err
}

// uniqueCheck is one value to test. original is the stored value when
// editing; an unchanged value is not checked.
type uniqueCheck struct {
	field    string
	value    string
	original string
	editing  bool
	taken    func(ctx context.Context, value, excludingID string) (bool, error)
	message  string
}

// run adds a field error for every taken value. Fields that already carry
// an error are skipped.
func (u *Uniqueness) run(ctx context.Context, errs event.ValidationError, excludingID string, checks ...uniqueCheck) error {
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		if _, failed := errs[c.field]; failed {
			continue
		}
		if c.editing && store.FoldKey(c.value) == store.FoldKey(c.original) {
			continue
		}
		taken, err := c.taken(ctx, c.value, excludingID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add(c.field, c.message)
		}
	}
	return nil
}

// CheckEvent adds title and slug errors for in. original is nil for new
// events.
func (u *Uniqueness) CheckEvent(ctx context.Context, errs event.ValidationError, in event.Input, original *store.Event) error {
	var excludingID, title, slug string
	if original != nil {
		excludingID, title, slug = original.ID, original.Title, original.Slug
	}
	editing := original != nil
	return u.run(ctx, errs, excludingID,
		uniqueCheck{field: event.FieldTitle, value: in.Title, original: title, editing: editing, taken: u.IsTitleTaken, message: MsgTitleTaken},
		uniqueCheck{field: event.FieldSlug, value: in.Slug, original: slug, editing: editing, taken: u.IsSlugTaken, message: MsgEventSlugTaken},
	)
}

// CheckCategory adds name and slug errors for in. original is nil for new
// categories.
func (u *Uniqueness) CheckCategory(ctx context.Context, errs event.ValidationError, in CategoryInput, original *store.Category) error {
	var excludingID, name, slug string
	if original != nil {
		excludingID, name, slug = original.ID, original.Name, original.Slug
	}
	editing := original != nil
	return u.run(ctx, errs, excludingID,
		uniqueCheck{field: event.FieldName, value: in.Name, original: name, editing: editing, taken: u.IsCategoryNameTaken, message: MsgCategoryNameTaken},
		uniqueCheck{field: event.FieldSlug, value: in.Slug, original: slug, editing: editing, taken: u.IsCategorySlugTaken, message: MsgCategorySlugTaken},
	)
}

// uniqueColumns maps unique indexes to form fields and messages.
var uniqueColumns = map[string][2]string{
	"events.title":        {event.FieldTitle, MsgTitleTaken},
	"events.title_key":    {event.FieldTitle, MsgTitleTaken},
	"events.slug":         {event.FieldSlug, MsgEventSlugTaken},
	"categories.name":     {event.FieldName, MsgCategoryNameTaken},
	"categories.name_key": {event.FieldName, MsgCategoryNameTaken},
	"categories.slug":     {event.FieldSlug, MsgCategorySlugTaken},
}

// uniqueViolationError turns a unique constraint failure that slipped past
// the checks into the same field error the checks produce.
func uniqueViolationError(err error) (event.ValidationError, bool) {
	cols := store.UniqueViolation(err)
	if len(cols) == 0 {
		return nil, false
	}
	errs := event.ValidationError{}
	for _, col := range cols {
		if m, ok := uniqueColumns[col]; ok {
			errs.Add(m[0], m[1])
		}
	}
	if len(errs) == 0 {
		return nil, false
	}
	return errs, true
}
