// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createAuditEntry = `INSERT INTO audit_log (level, category, message, metadata, created_at)
VALUES (?, ?, ?, ?, ?)`

type CreateAuditEntryParams struct {
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

func (q *Queries) CreateAuditEntry(ctx context.Context, arg CreateAuditEntryParams) error {
	_, err := q.db.ExecContext(ctx, createAuditEntry, arg.Level, arg.Category, arg.Message, arg.Metadata, arg.CreatedAt)
	return err
}

const listAuditEntries = `SELECT id, level, category, message, metadata, created_at FROM audit_log
ORDER BY created_at DESC, id DESC LIMIT ?`

func (q *Queries) ListAuditEntries(ctx context.Context, limit int64) ([]AuditEntry, error) {
	rows, err := q.db.QueryContext(ctx, listAuditEntries, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []AuditEntry
	for rows.Next() {
		var a AuditEntry
		if err := rows.Scan(&a.ID, &a.Level, &a.Category, &a.Message, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const deleteAuditEntriesBefore = `DELETE FROM audit_log WHERE created_at < ?`

// DeleteAuditEntriesBefore removes entries older than cutoff and returns how many were deleted.
func (q *Queries) DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAuditEntriesBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
