// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the operations behind the site: the event
// lifecycle, categories, newsletter signups and feedback. Every operation
// takes the acting auth.Principal explicitly.
package service

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/petrpacas/spiritevents-sub000/internal/auth"
	"github.com/petrpacas/spiritevents-sub000/internal/event"
)

// Result is the outcome of a write. Warnings describe collaborator steps
// (image storage, notifications) that failed without failing the write.
type Result struct {
	Warnings []string
}

func (r *Result) warn(logger *slog.Logger, msg string, err error, attrs ...any) {
	logger.Warn(msg, append(attrs, "error", err)...)
	r.Warnings = append(r.Warnings, msg)
}

func requireOperator(p auth.Principal) error {
	if !p.IsOperator() {
		return event.ErrForbidden
	}
	return nil
}

// notFound maps sql.ErrNoRows to event.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return event.ErrNotFound
	}
	return err
}
