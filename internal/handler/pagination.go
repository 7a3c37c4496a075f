// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/petrpacas/spiritevents-sub000/internal/service"
)

// Pagination holds pagination data for listing templates.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int64
	HasPrev     bool
	HasNext     bool
	PrevURL     string
	NextURL     string
	Pages       []PaginationPage
}

// PaginationPage represents a single page link.
type PaginationPage struct {
	Number     int
	URL        string
	IsCurrent  bool
	IsEllipsis bool
}

// ShouldShow reports whether there is more than one page.
func (p Pagination) ShouldShow() bool {
	return p.TotalPages > 1
}

// buildPagination creates pagination links for a listing page. Query
// parameters other than page are preserved.
func buildPagination(page service.EventPage, baseURL string, query url.Values) Pagination {
	totalPages := max(page.TotalPages, 1)
	current := page.Page

	params := make(url.Values)
	for k, v := range query {
		if k != "page" && len(v) > 0 && v[0] != "" {
			params[k] = v
		}
	}
	qs := params.Encode()

	pageURL := func(n int) string {
		if qs != "" {
			return fmt.Sprintf("%s?%s&page=%d", baseURL, qs, n)
		}
		return fmt.Sprintf("%s?page=%d", baseURL, n)
	}

	p := Pagination{
		CurrentPage: current,
		TotalPages:  totalPages,
		TotalItems:  page.Total,
		HasPrev:     current > 1,
		HasNext:     current < totalPages,
	}
	if p.HasPrev {
		p.PrevURL = pageURL(current - 1)
	}
	if p.HasNext {
		p.NextURL = pageURL(current + 1)
	}

	// Show at most 5 pages around the current one, with ellipses.
	start, end := current-2, current+2
	if start < 1 {
		start, end = 1, 5
	}
	if end > totalPages {
		end = totalPages
		start = max(end-4, 1)
	}

	if start > 1 {
		p.Pages = append(p.Pages, PaginationPage{Number: 1, URL: pageURL(1)})
		if start > 2 {
			p.Pages = append(p.Pages, PaginationPage{IsEllipsis: true})
		}
	}
	for i := start; i <= end; i++ {
		p.Pages = append(p.Pages, PaginationPage{Number: i, URL: pageURL(i), IsCurrent: i == current})
	}
	if end < totalPages {
		if end < totalPages-1 {
			p.Pages = append(p.Pages, PaginationPage{IsEllipsis: true})
		}
		p.Pages = append(p.Pages, PaginationPage{Number: totalPages, URL: pageURL(totalPages)})
	}

	return p
}

// pageParam reads the page query parameter; invalid values mean page 1.
func pageParam(query url.Values) int {
	n, err := strconv.Atoi(query.Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
