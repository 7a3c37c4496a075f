// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package event

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/petrpacas/spiritevents-sub000/internal/util"
)

// Field limits.
const (
	MaxTitleLength       = 200
	MaxSlugLength        = 200
	MaxTextLength        = 200
	MaxURLLength         = 2048
	MaxDescriptionLength = 20000
)

// Input is the submitted content of an event form.
type Input struct {
	Title        string
	Slug         string
	SlugModified bool
	Schedule
	Location    string
	Country     string
	Region      string
	LinkWebsite string
	LinkTickets string
	LinkMap     string
	LinkSocial  string
	Description string
	CategoryIDs []string
}

// Normalize cleans the input in place: whitespace, country code, schedule
// reconciliation and the final slug pass.
func (in *Input) Normalize() {
	in.Title = util.CollapseWhitespace(in.Title)
	in.Location = util.CollapseWhitespace(in.Location)
	in.Region = util.CollapseWhitespace(in.Region)
	in.Country = NormalizeCountry(in.Country)
	in.LinkWebsite = strings.TrimSpace(in.LinkWebsite)
	in.LinkTickets = strings.TrimSpace(in.LinkTickets)
	in.LinkMap = strings.TrimSpace(in.LinkMap)
	in.LinkSocial = strings.TrimSpace(in.LinkSocial)
	in.Description = strings.TrimSpace(in.Description)
	in.Schedule = Reconcile(in.Schedule)

	editor := SlugEditor{Title: in.Title, Slug: in.Slug, ManuallyModified: in.SlugModified}
	if !editor.ManuallyModified {
		editor.Slug = in.Title
	}
	in.Slug = editor.Finalize()

	seen := make(map[string]bool, len(in.CategoryIDs))
	ids := make([]string, 0, len(in.CategoryIDs))
	for _, id := range in.CategoryIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	in.CategoryIDs = ids
}

// Validate checks a normalized input. Uniqueness and category existence are
// checked by the service against the store.
func (in Input) Validate() ValidationError {
	errs := ValidationError{}

	switch n := utf8.RuneCountInString(in.Title); {
	case n == 0:
		errs.Add(FieldTitle, "Title is required")
	case n > MaxTitleLength:
		errs.Add(FieldTitle, fmt.Sprintf("Title must be at most %d characters", MaxTitleLength))
	}

	switch {
	case in.Slug == "" && in.Title != "":
		errs.Add(FieldSlug, "Slug cannot be empty")
	case in.Slug != "" && !util.IsValidSlug(in.Slug):
		errs.Add(FieldSlug, "Slug may only contain lowercase letters, numbers and hyphens")
	case len(in.Slug) > MaxSlugLength:
		errs.Add(FieldSlug, fmt.Sprintf("Slug must be at most %d characters", MaxSlugLength))
	}

	if utf8.RuneCountInString(in.Location) > MaxTextLength {
		errs.Add(FieldLocation, fmt.Sprintf("Location must be at most %d characters", MaxTextLength))
	}
	if utf8.RuneCountInString(in.Region) > MaxTextLength {
		errs.Add(FieldRegion, fmt.Sprintf("Region must be at most %d characters", MaxTextLength))
	}
	if in.Country != "" && !IsCountry(in.Country) {
		errs.Add(FieldCountry, "Unknown country")
	}

	for field, link := range map[string]string{
		FieldLinkWebsite: in.LinkWebsite,
		FieldLinkTickets: in.LinkTickets,
		FieldLinkMap:     in.LinkMap,
		FieldLinkSocial:  in.LinkSocial,
	} {
		if msg := validateURL(link); msg != "" {
			errs.Add(field, msg)
		}
	}

	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		errs.Add(FieldDescription, fmt.Sprintf("Description must be at most %d characters", MaxDescriptionLength))
	}

	errs.Merge(in.Schedule.Validate())
	return errs
}

func validateURL(raw string) string {
	if raw == "" {
		return ""
	}
	if len(raw) > MaxURLLength {
		return "Link is too long"
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "Link must be a full http:// or https:// address"
	}
	return ""
}
