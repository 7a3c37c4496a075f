// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"errors"
	"html/template"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

// templateFuncs returns custom template functions.
func (r *Renderer) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("2 Jan 2006")
		},
		"formatDateTime": func(t time.Time) string {
			return t.Format("2 Jan 2006 15:04")
		},
		"truncate": truncate,
		"markdown": Markdown,
		"imageURL": func(key string) string {
			if key == "" {
				return ""
			}
			return r.imageURL(key)
		},
		"countryName": event.CountryName,
		"countries":   event.Countries,
		"statusLabel": func(s string) string {
			return event.Status(s).Label()
		},
		"dateRange": func(e store.Event) string {
			return scheduleOf(e).Range()
		},
		"hours": func(e store.Event) string {
			return scheduleOf(e).Hours()
		},
		"contains": func(list []string, s string) bool {
			return slices.Contains(list, s)
		},
		"dict": dict,
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"seq": func(start, end int) []int {
			var result []int
			for i := start; i <= end; i++ {
				result = append(result, i)
			}
			return result
		},
	}
}

func scheduleOf(e store.Event) event.Schedule {
	return event.Schedule{DateStart: e.DateStart, DateEnd: e.DateEnd, TimeStart: e.TimeStart, TimeEnd: e.TimeEnd}
}

// truncate shortens s to length runes, appending an ellipsis.
func truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	runes := []rune(s)
	return string(runes[:length]) + "…"
}

// dict builds a map from alternating keys and values, for passing several
// values to a partial.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, errors.New("dict: keys must be strings")
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}
