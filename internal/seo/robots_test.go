// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"strings"
	"testing"
)

func TestRobots(t *testing.T) {
	got := Robots("https://events.example.org/", false)

	for _, want := range []string{
		"User-agent: *\n",
		"Disallow: /admin\n",
		"Disallow: /login\n",
		"Allow: /\n",
		"Sitemap: https://events.example.org/sitemap.xml\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("robots.txt missing %q:\n%s", want, got)
		}
	}
}

func TestRobots_DisallowAll(t *testing.T) {
	got := Robots("https://staging.example.org", true)

	if got != "User-agent: *\nDisallow: /\n" {
		t.Errorf("robots.txt = %q", got)
	}
}

func TestRobots_NoSiteURL(t *testing.T) {
	if got := Robots("", false); strings.Contains(got, "Sitemap:") {
		t.Errorf("robots.txt without a site URL should not link a sitemap:\n%s", got)
	}
}
