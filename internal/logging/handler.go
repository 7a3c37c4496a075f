// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors warnings and errors
// into the audit_log table.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

// Audit levels stored in audit_log.level.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Audit categories stored in audit_log.category.
const (
	CategoryEvent    = "event"
	CategoryCategory = "category"
	CategoryAuth     = "auth"
	CategoryStorage  = "storage"
	CategoryNotify   = "notify"
	CategoryMail     = "mail"
	CategoryCache    = "cache"
	CategorySystem   = "system"
)

// AuditHandler wraps another slog.Handler and also writes records at or
// above its level to the audit log.
type AuditHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewAuditHandler creates an AuditHandler that records WARN and above.
func NewAuditHandler(inner slog.Handler, db *sql.DB) *AuditHandler {
	return NewAuditHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewAuditHandlerWithLevel creates an AuditHandler with a custom minimum level.
func NewAuditHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *AuditHandler {
	return &AuditHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *AuditHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *AuditHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.write(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *AuditHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AuditHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler.
func (h *AuditHandler) WithGroup(name string) slog.Handler {
	return &AuditHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

// write stores the record with a background context so entries survive
// cancelled requests.
func (h *AuditHandler) write(r slog.Record) {
	attrs := append([]slog.Attr(nil), h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	_ = h.queries.CreateAuditEntry(context.Background(), store.CreateAuditEntryParams{
		Level:     auditLevel(r.Level),
		Category:  category(r.Message, attrs),
		Message:   r.Message,
		Metadata:  metadata(attrs),
		CreatedAt: r.Time.UTC(),
	})
}

func auditLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarning
	default:
		return LevelInfo
	}
}

// category prefers an explicit "category" attribute and otherwise infers one
// from the message.
func category(msg string, attrs []slog.Attr) string {
	for _, a := range attrs {
		if a.Key == "category" {
			return a.Value.String()
		}
	}

	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "logout") || strings.Contains(msg, "auth"):
		return CategoryAuth
	case strings.Contains(msg, "category"):
		return CategoryCategory
	case strings.Contains(msg, "event") || strings.Contains(msg, "suggestion"):
		return CategoryEvent
	case strings.Contains(msg, "storage") || strings.Contains(msg, "image") || strings.Contains(msg, "upload"):
		return CategoryStorage
	case strings.Contains(msg, "notif") || strings.Contains(msg, "webhook"):
		return CategoryNotify
	case strings.Contains(msg, "mail"):
		return CategoryMail
	case strings.Contains(msg, "cache"):
		return CategoryCache
	default:
		return CategorySystem
	}
}

func metadata(attrs []slog.Attr) string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Key == "category" {
			continue
		}
		m[a.Key] = a.Value.String()
	}
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}
