// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import "strings"

const uniqueFailedPrefix = "UNIQUE constraint failed: "

// UniqueViolation reports the "table.column" names of a SQLite unique
// constraint error. It returns nil when err is not such an error.
func UniqueViolation(err error) []string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	idx := strings.Index(msg, uniqueFailedPrefix)
	if idx < 0 {
		return nil
	}
	rest := msg[idx+len(uniqueFailedPrefix):]
	// Drivers append the extended result code in parentheses.
	if p := strings.Index(rest, " ("); p >= 0 {
		rest = rest[:p]
	}

	var cols []string
	for _, c := range strings.Split(rest, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// IsUniqueViolation reports whether err is a unique constraint failure on
// the given "table.column".
func IsUniqueViolation(err error, column string) bool {
	for _, c := range UniqueViolation(err) {
		if c == column {
			return true
		}
	}
	return false
}
