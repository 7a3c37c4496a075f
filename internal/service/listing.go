// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/petrpacas/spiritevents-sub000/internal/auth"
	"github.com/petrpacas/spiritevents-sub000/internal/cache"
	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

// Page sizes.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

const facetsKeyPrefix = "facets:"

// ListOptions filters an event listing. Empty fields do not filter.
type ListOptions struct {
	// Status is honoured for operators only; public listings always show
	// published events.
	Status       event.Status
	Query        string
	CategorySlug string
	Country      string
	// Past lists events that have ended, newest first.
	Past bool
	// AnyDate disables the upcoming/past split.
	AnyDate bool
	Page    int
	PerPage int
}

// EventPage is one page of a listing.
type EventPage struct {
	Events     []EventView
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}

// HasPrev reports whether there is a page before this one.
func (p EventPage) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether there is a page after this one.
func (p EventPage) HasNext() bool { return p.Page < p.TotalPages }

// List returns a page of events visible to p.
func (s *EventService) List(ctx context.Context, p auth.Principal, opts ListOptions) (EventPage, error) {
	filter := store.EventFilter{
		Status:       string(event.StatusPublished),
		Query:        strings.TrimSpace(opts.Query),
		CategorySlug: strings.TrimSpace(opts.CategorySlug),
		Country:      event.NormalizeCountry(opts.Country),
		Period:       store.PeriodUpcoming,
		Today:        s.today(),
	}
	if p.IsOperator() {
		filter.Status = string(opts.Status)
	}

	order := store.OrderUpcoming
	switch {
	case opts.AnyDate:
		filter.Period = store.PeriodAll
		order = store.OrderRecent
	case opts.Past:
		filter.Period = store.PeriodPast
		order = store.OrderPast
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)
	page := max(opts.Page, 1)

	total, err := s.queries.CountEvents(ctx, filter)
	if err != nil {
		return EventPage{}, fmt.Errorf("counting events: %w", err)
	}

	events, err := s.queries.ListEvents(ctx, store.ListEventsParams{
		EventFilter: filter,
		Order:       order,
		Limit:       int64(perPage),
		Offset:      int64((page - 1) * perPage),
	})
	if err != nil {
		return EventPage{}, fmt.Errorf("listing events: %w", err)
	}

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	cats, err := s.queries.ListCategoriesForEvents(ctx, ids)
	if err != nil {
		return EventPage{}, fmt.Errorf("loading event categories: %w", err)
	}

	views := make([]EventView, len(events))
	for i, e := range events {
		views[i] = EventView{Event: e, Categories: cats[e.ID]}
	}

	return EventPage{
		Events:     views,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
	}, nil
}

func (s *EventService) today() string {
	return s.now().Format(event.DateLayout)
}

// MonthGroup is a run of events starting in the same month.
type MonthGroup struct {
	// Key is "2006-01", or empty for events without a date.
	Key    string
	Label  string
	Events []EventView
}

// LabelNoDate heads events that have no start date yet.
const LabelNoDate = "Date to be announced"

// GroupByMonth groups events by the month of their start date, keeping the
// order of the input.
func GroupByMonth(events []EventView) []MonthGroup {
	var groups []MonthGroup
	index := make(map[string]int)
	for _, e := range events {
		key, label := "", LabelNoDate
		if start, ok := e.Schedule().Start(); ok {
			key, label = start.Format("2006-01"), start.Format("January 2006")
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, MonthGroup{Key: key, Label: label})
		}
		groups[i].Events = append(groups[i].Events, e)
	}
	return groups
}

// CountryFacet is a country with the number of upcoming published events.
type CountryFacet struct {
	Code  string
	Name  string
	Count int64
}

// Facets are the filter choices of the public listing.
type Facets struct {
	Categories []store.CategoryCount
	Countries  []CountryFacet
}

// Facets returns the categories and countries of upcoming published events.
// Results are cached per day and dropped whenever an event or category
// changes.
func (s *EventService) Facets(ctx context.Context) (Facets, error) {
	today := s.today()
	return cache.GetOrSet(ctx, s.cache, facetsKeyPrefix+today, s.cacheTTL, func(ctx context.Context) (Facets, error) {
		return loadFacets(ctx, s.queries, today)
	})
}

func loadFacets(ctx context.Context, q *store.Queries, today string) (Facets, error) {
	cats, err := q.CountPublishedByCategory(ctx, today)
	if err != nil {
		return Facets{}, fmt.Errorf("counting categories: %w", err)
	}
	countries, err := q.CountPublishedByCountry(ctx, today)
	if err != nil {
		return Facets{}, fmt.Errorf("counting countries: %w", err)
	}

	f := Facets{Categories: cats}
	for _, c := range countries {
		f.Countries = append(f.Countries, CountryFacet{Code: c.Country, Name: event.CountryName(c.Country), Count: c.Count})
	}
	return f, nil
}

func (s *EventService) invalidateFacets(ctx context.Context) {
	invalidateFacets(ctx, s.cache, s.logger)
}

func invalidateFacets(ctx context.Context, c cache.Cache, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := c.DeleteByPrefix(ctx, facetsKeyPrefix); err != nil {
		logger.Warn("failed to invalidate facet cache", "error", err)
	}
}

// PublishedSlugs lists every published event, newest start date first.
func (s *EventService) PublishedSlugs(ctx context.Context) ([]store.EventSlug, error) {
	return s.queries.ListPublishedEventSlugs(ctx)
}
