// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides slug generation, path and URL safety checks and
// small conversion helpers shared across the application.
package util

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultSlugExclude lists characters dropped outright instead of becoming a
// separator.
const DefaultSlugExclude = "&|<>"

// slugSeparators become a hyphen when they appear between words.
const slugSeparators = "-_/\\.,:;+~"

type slugOptions struct {
	exclude string
	live    bool
}

// SlugOption configures Slugify.
type SlugOption func(*slugOptions)

// WithExclude drops every character of chars before normalization.
func WithExclude(chars string) SlugOption {
	return func(o *slugOptions) {
		o.exclude += chars
	}
}

// Live keeps a trailing hyphen so a word still being typed previews as "word-".
// The final non-live pass removes it.
func Live() SlugOption {
	return func(o *slugOptions) {
		o.live = true
	}
}

// Slugify converts a string to a URL-friendly slug.
// Diacritics are stripped, other non-ASCII letters are transliterated, runs of
// whitespace and separators become one hyphen and everything outside
// [a-z0-9-] is removed. Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string, opts ...SlugOption) string {
	o := slugOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.exclude != "" {
		s = strings.Map(func(r rune) rune {
			if strings.ContainsRune(o.exclude, r) {
				return -1
			}
			return r
		}, s)
	}

	// Decompose accents and drop the combining marks
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)

	// Transliterate what is left outside ASCII (ß, ł, cyrillic, ...)
	result = unidecode.Unidecode(result)
	result = strings.ToLower(result)

	var b strings.Builder
	b.Grow(len(result))
	pendingHyphen := false
	for _, r := range result {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || strings.ContainsRune(slugSeparators, r):
			pendingHyphen = true
		}
	}

	if o.live && pendingHyphen && b.Len() > 0 {
		b.WriteByte('-')
	}
	return b.String()
}

// CollapseWhitespace trims s and replaces every whitespace run with one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsValidSlug checks if a string is a valid slug format.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}

	// Check if it only contains lowercase letters, numbers, and hyphens
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}

	// Check that it doesn't start or end with a hyphen
	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}

	// Check for consecutive hyphens
	if strings.Contains(s, "--") {
		return false
	}

	return true
}
