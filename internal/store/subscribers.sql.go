// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createSubscriber = `INSERT INTO subscribers (email, created_at) VALUES (?, ?)
ON CONFLICT (email) DO NOTHING`

type CreateSubscriberParams struct {
	Email     string
	CreatedAt time.Time
}

// CreateSubscriber reports whether a new row was inserted.
func (q *Queries) CreateSubscriber(ctx context.Context, arg CreateSubscriberParams) (bool, error) {
	res, err := q.db.ExecContext(ctx, createSubscriber, arg.Email, arg.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const listSubscribers = `SELECT id, email, created_at FROM subscribers ORDER BY created_at DESC, id DESC`

func (q *Queries) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := q.db.QueryContext(ctx, listSubscribers)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Subscriber
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
