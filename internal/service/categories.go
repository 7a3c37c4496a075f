// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/petrpacas/spiritevents-sub000/internal/auth"
	"github.com/petrpacas/spiritevents-sub000/internal/cache"
	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
	"github.com/petrpacas/spiritevents-sub000/internal/util"
)

// MaxCategoryNameLength limits category names.
const MaxCategoryNameLength = 100

// CategoryInput is a submitted category form.
type CategoryInput struct {
	Name         string
	Slug         string
	SlugModified bool
}

// Normalize collapses whitespace and derives the slug like event forms do.
func (in *CategoryInput) Normalize() {
	in.Name = util.CollapseWhitespace(in.Name)
	editor := event.SlugEditor{Title: in.Name, Slug: in.Slug, ManuallyModified: in.SlugModified}
	if !editor.ManuallyModified {
		editor.Slug = in.Name
	}
	in.Slug = editor.Finalize()
}

// Validate checks a normalized input.
func (in CategoryInput) Validate() event.ValidationError {
	errs := event.ValidationError{}
	switch n := utf8.RuneCountInString(in.Name); {
	case n == 0:
		errs.Add(event.FieldName, "Name is required")
	case n > MaxCategoryNameLength:
		errs.Add(event.FieldName, fmt.Sprintf("Name must be at most %d characters", MaxCategoryNameLength))
	}
	switch {
	case in.Slug == "" && in.Name != "":
		errs.Add(event.FieldSlug, "Slug cannot be empty")
	case in.Slug != "" && !util.IsValidSlug(in.Slug):
		errs.Add(event.FieldSlug, "Slug may only contain lowercase letters, numbers and hyphens")
	}
	return errs
}

// CategoryUsage is a category with the number of events tagged with it.
type CategoryUsage struct {
	store.Category
	Events int64
}

// CategoryService manages event categories.
type CategoryService struct {
	queries *store.Queries
	unique  *Uniqueness
	cache   cache.Cache
	logger  *slog.Logger
	now     func() time.Time
}

// NewCategoryService creates a CategoryService. c is invalidated on every
// write because the public facets include categories.
func NewCategoryService(db *sql.DB, c cache.Cache, logger *slog.Logger) *CategoryService {
	queries := store.New(db)
	if c == nil {
		c = cache.NewMemoryCache(cache.MemoryCacheOptions{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryService{
		queries: queries,
		unique:  NewUniqueness(queries),
		cache:   c,
		logger:  logger,
		now:     time.Now,
	}
}

// List returns every category ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]store.Category, error) {
	return s.queries.ListCategories(ctx)
}

// ListWithUsage returns every category with its event count.
func (s *CategoryService) ListWithUsage(ctx context.Context, p auth.Principal) ([]CategoryUsage, error) {
	if err := requireOperator(p); err != nil {
		return nil, err
	}
	cats, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryUsage, len(cats))
	for i, c := range cats {
		n, err := s.queries.CountCategoryEvents(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("counting category events: %w", err)
		}
		out[i] = CategoryUsage{Category: c, Events: n}
	}
	return out, nil
}

// GetBySlug returns the category with slug.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (store.Category, error) {
	c, err := s.queries.GetCategoryBySlug(ctx, slug)
	return c, notFound(err)
}

// GetByID returns the category with id.
func (s *CategoryService) GetByID(ctx context.Context, id string) (store.Category, error) {
	c, err := s.queries.GetCategoryByID(ctx, id)
	return c, notFound(err)
}

// Create stores a new category. Names and slugs are unique regardless of
// case.
func (s *CategoryService) Create(ctx context.Context, p auth.Principal, in CategoryInput) (store.Category, error) {
	if err := requireOperator(p); err != nil {
		return store.Category{}, err
	}
	in.Normalize()
	if err := s.validate(ctx, in, nil); err != nil {
		return store.Category{}, err
	}

	now := s.now()
	c, err := s.queries.CreateCategory(ctx, store.CreateCategoryParams{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Slug:      in.Slug,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if verr, ok := uniqueViolationError(err); ok {
			return store.Category{}, verr
		}
		return store.Category{}, fmt.Errorf("creating category: %w", err)
	}

	invalidateFacets(ctx, s.cache, s.logger)
	s.logger.Info("category created", "category_id", c.ID, "name", c.Name, "user_id", p.UserID)
	return c, nil
}

// Update renames a category.
func (s *CategoryService) Update(ctx context.Context, p auth.Principal, id string, in CategoryInput) (store.Category, error) {
	if err := requireOperator(p); err != nil {
		return store.Category{}, err
	}
	current, err := s.queries.GetCategoryByID(ctx, id)
	if err != nil {
		return store.Category{}, notFound(err)
	}

	in.Normalize()
	if err := s.validate(ctx, in, &current); err != nil {
		return store.Category{}, err
	}

	c, err := s.queries.UpdateCategory(ctx, store.UpdateCategoryParams{
		ID:        id,
		Name:      in.Name,
		Slug:      in.Slug,
		UpdatedAt: s.now(),
	})
	if err != nil {
		if verr, ok := uniqueViolationError(err); ok {
			return store.Category{}, verr
		}
		return store.Category{}, fmt.Errorf("updating category: %w", err)
	}

	invalidateFacets(ctx, s.cache, s.logger)
	return c, nil
}

// Delete removes a category. Events tagged with it lose the tag.
func (s *CategoryService) Delete(ctx context.Context, p auth.Principal, id string) error {
	if err := requireOperator(p); err != nil {
		return err
	}
	c, err := s.queries.GetCategoryByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if err := s.queries.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	invalidateFacets(ctx, s.cache, s.logger)
	s.logger.Info("category deleted", "category_id", id, "name", c.Name, "user_id", p.UserID)
	return nil
}

func (s *CategoryService) validate(ctx context.Context, in CategoryInput, original *store.Category) error {
	errs := in.Validate()
	if err := s.unique.CheckCategory(ctx, errs, in, original); err != nil {
		return fmt.Errorf("checking uniqueness: %w", err)
	}
	return errs.Err()
}
