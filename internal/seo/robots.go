// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import "strings"

// privatePaths are never worth crawling: the operator area and form
// endpoints.
var privatePaths = []string{
	"/admin",
	"/login",
	"/logout",
	"/events/search",
	"/newsletter",
}

// Robots returns robots.txt content. Non-production sites block every
// crawler and advertise no sitemap.
func Robots(siteURL string, disallowAll bool) string {
	var sb strings.Builder
	sb.WriteString("User-agent: *\n")

	if disallowAll {
		sb.WriteString("Disallow: /\n")
		return sb.String()
	}

	for _, p := range privatePaths {
		sb.WriteString("Disallow: ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	sb.WriteString("Allow: /\n")

	if siteURL != "" {
		sb.WriteString("\nSitemap: ")
		sb.WriteString(strings.TrimSuffix(siteURL, "/"))
		sb.WriteString("/sitemap.xml\n")
	}
	return sb.String()
}
