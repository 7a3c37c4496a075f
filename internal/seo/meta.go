// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds the metadata search engines and link previews read:
// meta tags, schema.org Event data, the sitemap and robots.txt.
package seo

import (
	"bytes"
	"encoding/json"
	"html"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// DescriptionLength is the length meta descriptions are cut to.
const DescriptionLength = 160

// Meta holds the meta tags of a page.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	OGType      string
	OGImage     string
	OGSiteName  string
	Robots      string
	JSONLD      template.JS
}

// SiteConfig contains site-wide settings.
type SiteConfig struct {
	SiteName    string
	SiteURL     string
	Description string
}

// EventPage is what an event detail page knows about its event.
type EventPage struct {
	Title       string
	Slug        string
	Description string // markdown
	ImageURL    string
	DateStart   string
	DateEnd     string
	TimeStart   string
	TimeEnd     string
	Location    string
	Region      string
	Country     string
	TicketsURL  string
	WebsiteURL  string
	// Published pages are indexed; drafts previewed by operators are not.
	Published bool
}

// HomeMeta returns the meta tags of a listing page at path.
func HomeMeta(site SiteConfig, path string) *Meta {
	return &Meta{
		Title:       site.SiteName,
		Description: site.Description,
		Canonical:   absoluteURL(path, site.SiteURL),
		OGType:      "website",
		OGSiteName:  site.SiteName,
		Robots:      "index,follow",
	}
}

// EventMeta returns the meta tags and structured data of an event page.
func EventMeta(e EventPage, site SiteConfig) *Meta {
	m := &Meta{
		Title:       e.Title,
		Description: Excerpt(e.Description, DescriptionLength),
		Canonical:   absoluteURL("/events/"+e.Slug, site.SiteURL),
		OGType:      "website",
		OGImage:     absoluteURL(e.ImageURL, site.SiteURL),
		OGSiteName:  site.SiteName,
		Robots:      "index,follow",
	}
	if !e.Published {
		m.Robots = "noindex,nofollow"
		return m
	}
	m.JSONLD = EventSchema(e, site)
	return m
}

// EventSchemaData is schema.org Event structured data.
type EventSchemaData struct {
	Context             string       `json:"@context"`
	Type                string       `json:"@type"`
	Name                string       `json:"name"`
	URL                 string       `json:"url"`
	Description         string       `json:"description,omitempty"`
	Image               string       `json:"image,omitempty"`
	StartDate           string       `json:"startDate"`
	EndDate             string       `json:"endDate,omitempty"`
	EventStatus         string       `json:"eventStatus"`
	EventAttendanceMode string       `json:"eventAttendanceMode"`
	Location            *PlaceSchema `json:"location,omitempty"`
	Offers              *OfferSchema `json:"offers,omitempty"`
	Organizer           *OrgSchema   `json:"organizer,omitempty"`
}

// PlaceSchema is a schema.org Place.
type PlaceSchema struct {
	Type    string         `json:"@type"`
	Name    string         `json:"name,omitempty"`
	Address *AddressSchema `json:"address,omitempty"`
}

// AddressSchema is a schema.org PostalAddress.
type AddressSchema struct {
	Type           string `json:"@type"`
	AddressRegion  string `json:"addressRegion,omitempty"`
	AddressCountry string `json:"addressCountry,omitempty"`
}

// OfferSchema points at the ticket page.
type OfferSchema struct {
	Type string `json:"@type"`
	URL  string `json:"url"`
}

// OrgSchema is a schema.org Organization.
type OrgSchema struct {
	Type string `json:"@type"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// EventSchema returns JSON-LD for a dated event, or "" when the event has
// no start date.
func EventSchema(e EventPage, site SiteConfig) template.JS {
	if e.DateStart == "" {
		return ""
	}
	data := EventSchemaData{
		Context:             "https://schema.org",
		Type:                "Event",
		Name:                e.Title,
		URL:                 absoluteURL("/events/"+e.Slug, site.SiteURL),
		Description:         Excerpt(e.Description, 500),
		Image:               absoluteURL(e.ImageURL, site.SiteURL),
		StartDate:           schemaDate(e.DateStart, e.TimeStart),
		EventStatus:         "https://schema.org/EventScheduled",
		EventAttendanceMode: "https://schema.org/OfflineEventAttendanceMode",
	}
	if e.DateEnd != "" {
		data.EndDate = schemaDate(e.DateEnd, e.TimeEnd)
	}
	if e.Location != "" || e.Region != "" || e.Country != "" {
		data.Location = &PlaceSchema{Type: "Place", Name: e.Location}
		if e.Region != "" || e.Country != "" {
			data.Location.Address = &AddressSchema{
				Type:           "PostalAddress",
				AddressRegion:  e.Region,
				AddressCountry: e.Country,
			}
		}
	}
	if e.TicketsURL != "" {
		data.Offers = &OfferSchema{Type: "Offer", URL: e.TicketsURL}
	}
	if e.WebsiteURL != "" {
		data.Organizer = &OrgSchema{Type: "Organization", Name: e.Title, URL: e.WebsiteURL}
	}
	return marshalJSONLD(data)
}

func schemaDate(date, clock string) string {
	if clock == "" {
		return date
	}
	return date + "T" + clock
}

// marshalJSONLD marshals structured data for a script tag.
func marshalJSONLD(v any) template.JS {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return template.JS(data)
}

var plainText = bluemonday.StrictPolicy()

// Excerpt renders markdown to plain text and cuts it to maxLen runes at a
// word boundary.
func Excerpt(markdown string, maxLen int) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return ""
	}
	text := html.UnescapeString(plainText.Sanitize(buf.String()))
	text = strings.Join(strings.Fields(text), " ")
	return truncateText(text, maxLen)
}

// truncateText truncates text to maxLen runes at a word boundary.
func truncateText(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	truncated := string([]rune(text)[:maxLen])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > len(truncated)/2 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimSpace(truncated) + "..."
}

// absoluteURL prepends siteURL to relative URLs.
func absoluteURL(u, siteURL string) string {
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return strings.TrimSuffix(siteURL, "/") + u
}
