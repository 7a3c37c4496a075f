// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"strings"

	"github.com/mileusna/useragent"
)

// clientSummary describes a User-Agent for operators reading feedback,
// e.g. "Firefox 128 on Linux" or "Safari 17 on iOS (mobile)".
func clientSummary(uaString string) string {
	if strings.TrimSpace(uaString) == "" {
		return ""
	}
	ua := useragent.Parse(uaString)

	browser := ua.Name
	if browser == "" {
		browser = "Unknown browser"
	}
	if major := majorVersion(ua.Version); major != "" {
		browser += " " + major
	}

	s := browser
	if ua.OS != "" {
		s += " on " + ua.OS
	}
	switch {
	case ua.Bot:
		s += " (bot)"
	case ua.Mobile:
		s += " (mobile)"
	case ua.Tablet:
		s += " (tablet)"
	}
	return s
}

func majorVersion(v string) string {
	major, _, _ := strings.Cut(v, ".")
	return major
}
